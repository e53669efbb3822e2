package protocol

import "time"

// Command payloads. Validation tags are enforced at the dispatcher boundary.

type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type RegisterRequest struct {
	Username       string  `json:"username" validate:"required,min=3,max=64"`
	Password       string  `json:"password" validate:"required,min=8"`
	FullName       string  `json:"fullName" validate:"required"`
	Email          string  `json:"email" validate:"required,email"`
	GPA            float64 `json:"gpa" validate:"gte=0,lte=4"`
	EnrollmentYear int     `json:"enrollmentYear" validate:"omitempty,gte=1990"`
}

type AllocateFundsRequest struct {
	BudgetID  int64   `json:"budgetId" validate:"required,gt=0"`
	ProgramID int64   `json:"programId" validate:"required,gt=0"`
	Amount    float64 `json:"amount" validate:"required,gt=0"`
	Notes     string  `json:"notes"`
}

type RecordFundUsageRequest struct {
	ProgramID int64   `json:"programId" validate:"required,gt=0"`
	Amount    float64 `json:"amount" validate:"required,gt=0"`
	Notes     string  `json:"notes"`
}

type ReviewApplicationRequest struct {
	ApplicationID int64  `json:"applicationId" validate:"required,gt=0"`
	Comments      string `json:"comments"`
}

type ApplyForScholarshipRequest struct {
	ProgramID int64 `json:"programId" validate:"required,gt=0"`
	PeriodID  int64 `json:"periodId" validate:"required,gt=0"`
}

type CreateProgramRequest struct {
	Name                string    `json:"name" validate:"required"`
	Description         string    `json:"description"`
	FundingAmount       float64   `json:"fundingAmount" validate:"required,gt=0"`
	MinGPA              float64   `json:"minGpa" validate:"gte=0,lte=4"`
	ApplicationDeadline time.Time `json:"applicationDeadline" validate:"required"`
}

type UpdateProgramRequest struct {
	ProgramID           int64      `json:"programId" validate:"required,gt=0"`
	Name                *string    `json:"name,omitempty"`
	Description         *string    `json:"description,omitempty"`
	FundingAmount       *float64   `json:"fundingAmount,omitempty" validate:"omitempty,gt=0"`
	MinGPA              *float64   `json:"minGpa,omitempty" validate:"omitempty,gte=0,lte=4"`
	ApplicationDeadline *time.Time `json:"applicationDeadline,omitempty"`
	Active              *bool      `json:"active,omitempty"`
}

type CreatePeriodRequest struct {
	Name      string    `json:"name" validate:"required"`
	StartDate time.Time `json:"startDate" validate:"required"`
	EndDate   time.Time `json:"endDate" validate:"required,gtfield=StartDate"`
}

type CreateBudgetRequest struct {
	Name        string    `json:"name" validate:"required"`
	FiscalYear  int       `json:"fiscalYear" validate:"required,gte=2000"`
	TotalAmount float64   `json:"totalAmount" validate:"required,gt=0"`
	StartDate   time.Time `json:"startDate" validate:"required"`
	EndDate     time.Time `json:"endDate" validate:"required,gtfield=StartDate"`
}

type BudgetActionRequest struct {
	BudgetID int64 `json:"budgetId" validate:"required,gt=0"`
}

type GetApplicationsRequest struct {
	ProgramID int64  `json:"programId,omitempty"`
	Status    string `json:"status,omitempty" validate:"omitempty,oneof=PENDING APPROVED REJECTED"`
}

type UpdateUserStatusRequest struct {
	UserID int64 `json:"userId" validate:"required,gt=0"`
	Active bool  `json:"active"`
}

type UpdateUserProfileRequest struct {
	UserID         int64    `json:"userId,omitempty"`
	FullName       *string  `json:"fullName,omitempty"`
	Email          *string  `json:"email,omitempty" validate:"omitempty,email"`
	GPA            *float64 `json:"gpa,omitempty" validate:"omitempty,gte=0,lte=4"`
	EnrollmentYear *int     `json:"enrollmentYear,omitempty" validate:"omitempty,gte=1990"`
}

// Response payloads. One concrete shape per status tag keeps decoding on the
// client side exhaustive over the status enum.

type LoginResponse struct {
	UserID   int64  `json:"userId"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

type UserResponse struct {
	UserID         int64   `json:"userId"`
	Username       string  `json:"username"`
	FullName       string  `json:"fullName"`
	Email          string  `json:"email"`
	Role           string  `json:"role"`
	Active         bool    `json:"active"`
	GPA            float64 `json:"gpa"`
	EnrollmentYear int     `json:"enrollmentYear"`
}

type UserStatusResponse struct {
	UserID int64 `json:"userId"`
	Active bool  `json:"active"`
}

type AllocationResponse struct {
	AllocationID    int64     `json:"allocationId"`
	BudgetID        int64     `json:"budgetId"`
	ProgramID       int64     `json:"programId"`
	Amount          float64   `json:"amount"`
	PreviousAmount  float64   `json:"previousAmount"`
	BudgetRemaining float64   `json:"budgetRemaining"`
	AllocatedAt     time.Time `json:"allocatedAt"`
}

type FundUsageResponse struct {
	UsageID    int64     `json:"usageId"`
	ProgramID  int64     `json:"programId"`
	Amount     float64   `json:"amount"`
	RecordedAt time.Time `json:"recordedAt"`
}

type ProgramResponse struct {
	ProgramID           int64     `json:"programId"`
	Name                string    `json:"name"`
	Description         string    `json:"description"`
	FundingAmount       float64   `json:"fundingAmount"`
	AllocatedAmount     float64   `json:"allocatedAmount"`
	UsedAmount          float64   `json:"usedAmount"`
	RemainingAmount     float64   `json:"remainingAmount"`
	MinGPA              float64   `json:"minGpa"`
	Active              bool      `json:"active"`
	ApplicationDeadline time.Time `json:"applicationDeadline"`
}

type ProgramListResponse struct {
	Programs []ProgramResponse `json:"programs"`
}

type BudgetResponse struct {
	BudgetID        int64     `json:"budgetId"`
	Name            string    `json:"name"`
	FiscalYear      int       `json:"fiscalYear"`
	TotalAmount     float64   `json:"totalAmount"`
	AllocatedAmount float64   `json:"allocatedAmount"`
	RemainingAmount float64   `json:"remainingAmount"`
	Status          string    `json:"status"`
	StartDate       time.Time `json:"startDate"`
	EndDate         time.Time `json:"endDate"`
}

type BudgetListResponse struct {
	Budgets []BudgetResponse `json:"budgets"`
}

type ApplicationResponse struct {
	ApplicationID int64      `json:"applicationId"`
	ApplicantID   int64      `json:"applicantId"`
	ProgramID     int64      `json:"programId"`
	PeriodID      int64      `json:"periodId"`
	Status        string     `json:"status"`
	SubmittedAt   time.Time  `json:"submittedAt"`
	ReviewerID    *int64     `json:"reviewerId,omitempty"`
	DecidedAt     *time.Time `json:"decidedAt,omitempty"`
	Comments      string     `json:"comments,omitempty"`
}

type ApplicationListResponse struct {
	Applications []ApplicationResponse `json:"applications"`
}

type PeriodResponse struct {
	PeriodID  int64     `json:"periodId"`
	Name      string    `json:"name"`
	StartDate time.Time `json:"startDate"`
	EndDate   time.Time `json:"endDate"`
	Active    bool      `json:"active"`
}

type StatusReportRow struct {
	ProgramID      int64   `json:"programId"`
	ProgramName    string  `json:"programName"`
	Pending        int     `json:"pending"`
	Approved       int     `json:"approved"`
	Rejected       int     `json:"rejected"`
	AllocatedTotal float64 `json:"allocatedTotal"`
	AllocatedText  string  `json:"allocatedText"`
}

type StatusReportResponse struct {
	GeneratedAt time.Time         `json:"generatedAt"`
	Rows        []StatusReportRow `json:"rows"`
}
