package response

// Response is the envelope every successful JSON endpoint returns. Data is always present.
type Response[T any] struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    T      `json:"data"`
}

// ErrorResponse is the envelope for failures. It carries no data.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func OK[T any](data T, message string) *Response[T] {
	return &Response[T]{Success: true, Message: message, Data: data}
}

func Error(message string) *ErrorResponse {
	return &ErrorResponse{Success: false, Message: message}
}
