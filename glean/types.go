package glean

// Employee statuses derived from the source enabled flag. Status is the one
// field that is always present on an Employee.
const (
	StatusCurrent = "CURRENT"
	StatusFormer  = "FORMER"
)

// Employee is the people-index record pushed to Glean. Fields without source
// data are omitted from the JSON payload entirely rather than sent as empty
// strings.
type Employee struct {
	Email        string `json:"email,omitempty"`
	FirstName    string `json:"firstName,omitempty"`
	LastName     string `json:"lastName,omitempty"`
	UserID       string `json:"userId,omitempty"`
	Department   string `json:"department,omitempty"`
	Title        string `json:"title,omitempty"`
	BusinessUnit string `json:"businessUnit,omitempty"`
	Phone        string `json:"phoneNumber,omitempty"`
	ManagerEmail string `json:"managerEmail,omitempty"`
	ManagerID    string `json:"managerId,omitempty"`
	Bio          string `json:"bio,omitempty"`
	PhotoURL     string `json:"photoUrl,omitempty"`
	StartDate    string `json:"startDate,omitempty"`
	Status       string `json:"status"`
}

// TeamMember is one email-bearing entry of a team's member list.
type TeamMember struct {
	Email string `json:"email"`
}

// Team is the team-index record pushed to Glean.
type Team struct {
	Name       string       `json:"name"`
	ExternalID string       `json:"externalId,omitempty"`
	Members    []TeamMember `json:"members"`
}

// PushError records one record's failure in individual indexing mode.
type PushError struct {
	ID      string `json:"id"`
	Message string `json:"error"`
}

// PushResult summarizes an individual-mode push. Bulk pushes have no
// per-record outcome and therefore produce no PushResult.
type PushResult struct {
	Total      int         `json:"total"`
	Successful int         `json:"successful"`
	Failed     int         `json:"failed"`
	Errors     []PushError `json:"errors,omitempty"`
}

// IndexResponse is the parsed body of a successful index call.
type IndexResponse struct {
	UploadID string `json:"uploadId,omitempty"`
	Status   string `json:"status,omitempty"`
}

// bulkEmployeesRequest is the bulk people-index envelope. Each call is a
// complete single-shot upload: first and last page of its uploadId.
type bulkEmployeesRequest struct {
	UploadID                      string     `json:"uploadId"`
	IsFirstPage                   bool       `json:"isFirstPage"`
	IsLastPage                    bool       `json:"isLastPage"`
	ForceRestartUpload            bool       `json:"forceRestartUpload"`
	DisableStaleDataDeletionCheck bool       `json:"disableStaleDataDeletionCheck,omitempty"`
	Datasource                    string     `json:"datasource"`
	Employees                     []Employee `json:"employees"`
}

// indexEmployeeRequest is the single people-index envelope.
type indexEmployeeRequest struct {
	Datasource string   `json:"datasource"`
	Employee   Employee `json:"employee"`
}

// bulkTeamsRequest is the team-index envelope; team pushes are always a full
// replacement of the datasource's teams.
type bulkTeamsRequest struct {
	UploadID    string `json:"uploadId"`
	IsFirstPage bool   `json:"isFirstPage"`
	IsLastPage  bool   `json:"isLastPage"`
	Datasource  string `json:"datasource"`
	Teams       []Team `json:"teams"`
}
