package segmenter

import "resume-parser-go/internal/types"

type transitionKey struct {
	current types.SectionKind
	matched types.SectionKind
}

// transitions 状态转移表: (当前章节, 标题命中的章节) -> 新章节。
// 表中没有的组合保持当前状态。
var transitions = map[transitionKey]types.SectionKind{
	{types.KindNone, types.KindPersonal}:     types.KindPersonal,
	{types.KindNone, types.KindExperience}:   types.KindExperience,
	{types.KindNone, types.KindEducation}:    types.KindEducation,
	{types.KindNone, types.KindSkills}:       types.KindSkills,
	{types.KindNone, types.KindProjects}:     types.KindProjects,
	{types.KindNone, types.KindUnclassified}: types.KindUnclassified,

	{types.KindPersonal, types.KindPersonal}:     types.KindPersonal,
	{types.KindPersonal, types.KindExperience}:   types.KindExperience,
	{types.KindPersonal, types.KindEducation}:    types.KindEducation,
	{types.KindPersonal, types.KindSkills}:       types.KindSkills,
	{types.KindPersonal, types.KindProjects}:     types.KindProjects,
	{types.KindPersonal, types.KindUnclassified}: types.KindUnclassified,

	{types.KindExperience, types.KindPersonal}:     types.KindPersonal,
	{types.KindExperience, types.KindExperience}:   types.KindExperience,
	{types.KindExperience, types.KindEducation}:    types.KindEducation,
	{types.KindExperience, types.KindSkills}:       types.KindSkills,
	{types.KindExperience, types.KindProjects}:     types.KindProjects,
	{types.KindExperience, types.KindUnclassified}: types.KindUnclassified,

	{types.KindEducation, types.KindPersonal}:     types.KindPersonal,
	{types.KindEducation, types.KindExperience}:   types.KindExperience,
	{types.KindEducation, types.KindEducation}:    types.KindEducation,
	{types.KindEducation, types.KindSkills}:       types.KindSkills,
	{types.KindEducation, types.KindProjects}:     types.KindProjects,
	{types.KindEducation, types.KindUnclassified}: types.KindUnclassified,

	{types.KindSkills, types.KindPersonal}:     types.KindPersonal,
	{types.KindSkills, types.KindExperience}:   types.KindExperience,
	{types.KindSkills, types.KindEducation}:    types.KindEducation,
	{types.KindSkills, types.KindSkills}:       types.KindSkills,
	{types.KindSkills, types.KindProjects}:     types.KindProjects,
	{types.KindSkills, types.KindUnclassified}: types.KindUnclassified,

	{types.KindProjects, types.KindPersonal}:     types.KindPersonal,
	{types.KindProjects, types.KindExperience}:   types.KindExperience,
	{types.KindProjects, types.KindEducation}:    types.KindEducation,
	{types.KindProjects, types.KindSkills}:       types.KindSkills,
	{types.KindProjects, types.KindProjects}:     types.KindProjects,
	{types.KindProjects, types.KindUnclassified}: types.KindUnclassified,

	{types.KindUnclassified, types.KindPersonal}:     types.KindPersonal,
	{types.KindUnclassified, types.KindExperience}:   types.KindExperience,
	{types.KindUnclassified, types.KindEducation}:    types.KindEducation,
	{types.KindUnclassified, types.KindSkills}:       types.KindSkills,
	{types.KindUnclassified, types.KindProjects}:     types.KindProjects,
	{types.KindUnclassified, types.KindUnclassified}: types.KindUnclassified,
}

// Next 查表得到下一个状态；ok 为 false 表示不发生转移
func Next(current, matched types.SectionKind) (types.SectionKind, bool) {
	next, ok := transitions[transitionKey{current: current, matched: matched}]
	return next, ok
}
