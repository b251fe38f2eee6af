package domain

import "strings"

// Position is a job position identified by a unique code (e.g. "ENG").
type Position struct {
	Record
	Code        string `json:"code"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

// NewPosition builds an unsaved position; the catalog assigns its identity.
func NewPosition(code, title, description string) *Position {
	return &Position{
		Code:        NormalizeCode(code),
		Title:       strings.TrimSpace(title),
		Description: strings.TrimSpace(description),
	}
}

// Employee is a staff member identified by a unique email.
type Employee struct {
	Record
	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name"`
	Email           string `json:"email"`
	NormalizedEmail string `json:"-"`
	PositionID      string `json:"position_id,omitempty"`
}

func NewEmployee(firstName, lastName, email, positionID string) *Employee {
	return &Employee{
		FirstName:       strings.TrimSpace(firstName),
		LastName:        strings.TrimSpace(lastName),
		Email:           strings.TrimSpace(email),
		NormalizedEmail: NormalizeEmail(email),
		PositionID:      strings.TrimSpace(positionID),
	}
}

// Client is a customer organisation identified by a unique contact email.
type Client struct {
	Record
	Name            string `json:"name"`
	Email           string `json:"email"`
	NormalizedEmail string `json:"-"`
	Phone           string `json:"phone,omitempty"`
}

func NewClient(name, email, phone string) *Client {
	return &Client{
		Name:            strings.TrimSpace(name),
		Email:           strings.TrimSpace(email),
		NormalizedEmail: NormalizeEmail(email),
		Phone:           strings.TrimSpace(phone),
	}
}

// Project is a client engagement identified by a unique code.
type Project struct {
	Record
	Code     string `json:"code"`
	Name     string `json:"name"`
	ClientID string `json:"client_id,omitempty"`
}

func NewProject(code, name, clientID string) *Project {
	return &Project{
		Code:     NormalizeCode(code),
		Name:     strings.TrimSpace(name),
		ClientID: strings.TrimSpace(clientID),
	}
}
