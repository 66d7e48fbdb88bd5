package jobs

// Job is the JSON shape of a job row returned by create, list, filter and update.
// Equity is a decimal string ("0.1") so it round-trips exactly; nil means no equity.
type Job struct {
	ID            int     `json:"id"`
	Title         string  `json:"title"`
	Salary        *int    `json:"salary"`
	Equity        *string `json:"equity"`
	CompanyHandle string  `json:"companyHandle"`
}

// Company is the read-only snapshot of the owning company embedded in JobDetail.
type Company struct {
	Handle       string  `json:"handle"`
	Name         string  `json:"name"`
	Description  string  `json:"description"`
	NumEmployees *int    `json:"numEmployees"`
	LogoURL      *string `json:"logoUrl"`
}

// JobDetail is a job joined with its company; Company replaces CompanyHandle.
type JobDetail struct {
	ID      int     `json:"id"`
	Title   string  `json:"title"`
	Salary  *int    `json:"salary"`
	Equity  *string `json:"equity"`
	Company Company `json:"company"`
}

// NewJob is the input to Create.
type NewJob struct {
	Title         string  `json:"title" validate:"required,min=1"`
	Salary        *int    `json:"salary" validate:"omitnil,gte=0"`
	Equity        *string `json:"equity" validate:"omitnil,equity"`
	CompanyHandle string  `json:"companyHandle" validate:"required,min=1,max=25"`
}

// JobPatch is the input to Update. Nil fields are left unchanged.
type JobPatch struct {
	Title         *string `json:"title" validate:"omitnil,min=1"`
	Salary        *int    `json:"salary" validate:"omitnil,gte=0"`
	Equity        *string `json:"equity" validate:"omitnil,equity"`
	CompanyHandle *string `json:"companyHandle" validate:"omitnil,min=1,max=25"`
}

// Empty reports whether the patch carries no fields.
func (p JobPatch) Empty() bool {
	return p.Title == nil && p.Salary == nil && p.Equity == nil && p.CompanyHandle == nil
}

// FilterOptions narrows a job listing. Nil fields impose no constraint, and a
// false HasEquity is the same as nil.
type FilterOptions struct {
	Title     *string `json:"title"`
	MinSalary *int    `json:"minSalary"`
	HasEquity *bool   `json:"hasEquity"`
}
