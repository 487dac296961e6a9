package model

type ErrorResponse struct {
	Error string `json:"error"`
}

type StatusResponse struct {
	Status string `json:"status"`
}

type PingResponse struct {
	Message string `json:"message"`
}

type RootResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	User    string `json:"user,omitempty"`
}

type MeResponse struct {
	User UserResponse `json:"user"`
}

type UserListResponse struct {
	Users []UserResponse `json:"users"`
	Count int            `json:"count"`
}
