package protocol

// Command identifies a client request type.
type Command string

const (
	CmdLogin                      Command = "LOGIN"
	CmdLogout                     Command = "LOGOUT"
	CmdRegister                   Command = "REGISTER"
	CmdAllocateFunds              Command = "ALLOCATE_FUNDS"
	CmdRecordFundUsage            Command = "RECORD_FUND_USAGE"
	CmdApproveApplication         Command = "APPROVE_APPLICATION"
	CmdRejectApplication          Command = "REJECT_APPLICATION"
	CmdApplyForScholarship        Command = "APPLY_FOR_SCHOLARSHIP"
	CmdCreateScholarshipProgram   Command = "CREATE_SCHOLARSHIP_PROGRAM"
	CmdUpdateScholarshipProgram   Command = "UPDATE_SCHOLARSHIP_PROGRAM"
	CmdCreateAcademicPeriod       Command = "CREATE_ACADEMIC_PERIOD"
	CmdGetScholarshipPrograms     Command = "GET_SCHOLARSHIP_PROGRAMS"
	CmdGetApplications            Command = "GET_APPLICATIONS"
	CmdGetApplicationStatusReport Command = "GET_APPLICATION_STATUS_REPORT"
	CmdCreateBudget               Command = "CREATE_BUDGET"
	CmdActivateBudget             Command = "ACTIVATE_BUDGET"
	CmdCloseBudget                Command = "CLOSE_BUDGET"
	CmdGetBudgets                 Command = "GET_BUDGETS"
	CmdUpdateUserStatus           Command = "UPDATE_USER_STATUS"
	CmdUpdateUserProfile          Command = "UPDATE_USER_PROFILE"
)

// Status identifies the outcome carried by a response envelope.
type Status string

const (
	StatusSuccess                  Status = "SUCCESS"
	StatusError                    Status = "ERROR"
	StatusUnknownCommand           Status = "UNKNOWN_COMMAND"
	StatusLoginSuccess             Status = "LOGIN_SUCCESS"
	StatusLoginFailed              Status = "LOGIN_FAILED"
	StatusRegistrationSuccess      Status = "REGISTRATION_SUCCESS"
	StatusRegistrationUserExists   Status = "REGISTRATION_FAILED_USERNAME_EXISTS"
	StatusLogoutSuccess            Status = "LOGOUT_SUCCESS"
	StatusAuthenticationRequired   Status = "AUTHENTICATION_REQUIRED"
	StatusDataFound                Status = "DATA_FOUND"
	StatusDataNotFound             Status = "DATA_NOT_FOUND"
	StatusDataUpdated              Status = "DATA_UPDATED"
	StatusDataUpdateFailed         Status = "DATA_UPDATE_FAILED"
	StatusPermissionDenied         Status = "PERMISSION_DENIED"
	StatusApplicationSubmitted     Status = "APPLICATION_SUBMITTED"
	StatusApplicationReviewed      Status = "APPLICATION_REVIEWED"
	StatusScholarshipProgramsFound Status = "SCHOLARSHIP_PROGRAMS_FOUND"
)
