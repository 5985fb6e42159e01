// submission/response.go
package submission

// Response is the JSON envelope the contact endpoint always answers with.
type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Errors  Errors `json:"errors"`
}

// Fail returns an unsuccessful response with no field errors.
func Fail(message string) Response {
	return Response{Message: message, Errors: Errors{}}
}

// Invalid returns an unsuccessful response carrying field errors.
func Invalid(message string, errs Errors) Response {
	if errs == nil {
		errs = Errors{}
	}
	return Response{Message: message, Errors: errs}
}

// Sent returns a successful response.
func Sent(message string) Response {
	return Response{Success: true, Message: message, Errors: Errors{}}
}
