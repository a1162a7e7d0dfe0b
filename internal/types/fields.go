package types

// 各章节记录中的字段名（ExtractedField.Name）
const (
	KeyName      = "name"
	KeyFirstName = "first_name"
	KeyLastName  = "last_name"
	KeyEmail     = "email"
	KeyPhone     = "phone"
	KeyPhoneE164 = "phone_e164"
	KeyLinkedIn  = "linkedin"
	KeyGitHub    = "github"
	KeyPortfolio = "portfolio"
	KeyLocation  = "location"
	KeySummary   = "summary"

	KeyOrganization   = "organization"
	KeyRole           = "role"
	KeyDateRange      = "date_range"
	KeyEmploymentType = "employment_type"
	KeyDescription    = "description"

	KeyInstitution = "institution"
	KeyDegree      = "degree"
	KeyGrade       = "grade"

	KeySkills    = "skills"
	KeyTechnical = "technical"
	KeySoft      = "soft"

	KeyURL       = "url"
	KeyTechStack = "tech_stack"
)

// DefaultRequiredFields 计算完整度时每类记录必须具备的字段
var DefaultRequiredFields = map[SectionKind][]string{
	KindPersonal:   {KeyName, KeyEmail, KeyPhone},
	KindExperience: {KeyOrganization, KeyRole, KeyDateRange},
	KindEducation:  {KeyInstitution, KeyDegree, KeyDateRange},
	KindSkills:     {KeySkills},
	KindProjects:   {KeyName, KeyDescription},
}
