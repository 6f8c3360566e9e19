package dto

// ErrorBody описывает ошибку API.
type ErrorBody struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// ErrorResponse - тело ответа с ошибкой.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}
