package handler

// Response is the envelope every endpoint answers with. Success reports
// the real outcome: a contact submission that could not be delivered is
// success=false even when the HTTP status is 200.
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

func NewSuccessResponse(data interface{}) *Response {
	return &Response{
		Success: true,
		Data:    data,
	}
}

func NewErrorResponse(message string) *Response {
	return &Response{
		Success: false,
		Error:   message,
	}
}
