package models

// Client represents one entry of an inbound's client list
type Client struct {
	ID    string `json:"id"`
	Flow  string `json:"flow,omitempty"`
	Email string `json:"email"`
}

// ClientFromMap builds a Client from the untyped config representation
func ClientFromMap(m map[string]interface{}) Client {
	c := Client{}
	if id, ok := m["id"].(string); ok {
		c.ID = id
	}
	if flow, ok := m["flow"].(string); ok {
		c.Flow = flow
	}
	if email, ok := m["email"].(string); ok {
		c.Email = email
	}
	return c
}
