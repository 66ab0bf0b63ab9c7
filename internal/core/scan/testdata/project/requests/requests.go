package requests

import "example.com/demo/models"

var defaultStatus = models.StatusActive

// Request carries the verb the rule methods branch on.
type Request struct {
	Method string
}

func (r *Request) IsMethod(m string) bool { return r.Method == m }

type CreateItemRequest struct{}

func (r CreateItemRequest) Rules(req *Request) map[string]any {
	if req.IsMethod("POST") {
		return map[string]any{
			"name":   "required|string|max:100",
			"status": "required|enum:models.Status",
		}
	}
	return map[string]any{
		"name": "sometimes|string|max:100",
	}
}

func (r CreateItemRequest) Attributes() map[string]string {
	return map[string]string{
		"name": "Item name",
	}
}

type UpdateItemRequest struct{}

func (r UpdateItemRequest) Rules(req *Request) map[string]any {
	return map[string]any{
		"priority": "integer|min:0|max:5",
	}
}
