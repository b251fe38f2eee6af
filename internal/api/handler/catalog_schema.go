package handler

import (
	"github.com/northwind/backoffice/internal/core/domain"
	"github.com/northwind/backoffice/internal/core/ports"
)

type createPositionRequest struct {
	Code        string `json:"code"        validate:"required,alphanum,max=16"`
	Title       string `json:"title"       validate:"required,max=120"`
	Description string `json:"description" validate:"max=1000"`
}

type createProjectRequest struct {
	Code     string `json:"code"      validate:"required,alphanum,max=16"`
	Name     string `json:"name"      validate:"required,max=120"`
	ClientID string `json:"client_id" validate:"omitempty,max=64"`
}

type createEmployeeRequest struct {
	FirstName  string `json:"first_name"  validate:"required,max=80"`
	LastName   string `json:"last_name"   validate:"required,max=80"`
	Email      string `json:"email"       validate:"required,email,max=254"`
	PositionID string `json:"position_id" validate:"omitempty,max=64"`
}

type createClientRequest struct {
	Name  string `json:"name"  validate:"required,max=120"`
	Email string `json:"email" validate:"required,email,max=254"`
	Phone string `json:"phone" validate:"omitempty,max=32"`
}

// NewPositionHandler serves /v1/positions.
func NewPositionHandler(service ports.CatalogService[*domain.Position]) *CatalogHandler[*domain.Position, createPositionRequest] {
	return NewCatalogHandler("position", service, func(r createPositionRequest) *domain.Position {
		return domain.NewPosition(r.Code, r.Title, r.Description)
	})
}

// NewProjectHandler serves /v1/projects.
func NewProjectHandler(service ports.CatalogService[*domain.Project]) *CatalogHandler[*domain.Project, createProjectRequest] {
	return NewCatalogHandler("project", service, func(r createProjectRequest) *domain.Project {
		return domain.NewProject(r.Code, r.Name, r.ClientID)
	})
}

// NewEmployeeHandler serves /v1/employees.
func NewEmployeeHandler(service ports.CatalogService[*domain.Employee]) *CatalogHandler[*domain.Employee, createEmployeeRequest] {
	return NewCatalogHandler("employee", service, func(r createEmployeeRequest) *domain.Employee {
		return domain.NewEmployee(r.FirstName, r.LastName, r.Email, r.PositionID)
	})
}

// NewClientHandler serves /v1/clients.
func NewClientHandler(service ports.CatalogService[*domain.Client]) *CatalogHandler[*domain.Client, createClientRequest] {
	return NewCatalogHandler("client", service, func(r createClientRequest) *domain.Client {
		return domain.NewClient(r.Name, r.Email, r.Phone)
	})
}
