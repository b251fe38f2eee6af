package mongo

import (
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/northwind/backoffice/internal/core/domain"
	"github.com/northwind/backoffice/internal/core/ports"
)

// --- Positions ---------------------------------------------------------------

type positionDoc struct {
	RecordDoc   `bson:",inline"`
	Code        string `bson:"code"`
	Title       string `bson:"title"`
	Description string `bson:"description,omitempty"`
}

type PositionRepository struct {
	*store[*domain.Position, positionDoc]
}

var _ ports.CatalogRepository[*domain.Position] = (*PositionRepository)(nil)

func NewPositionRepository(db *mongo.Database) *PositionRepository {
	return &PositionRepository{store: &store[*domain.Position, positionDoc]{
		coll:         db.Collection(collectionPositions),
		name:         "position",
		toDoc:        toPositionDoc,
		fromDoc:      fromPositionDoc,
		keyFilter:    func(p *domain.Position) bson.M { return bson.M{"code": p.Code} },
		searchFields: []string{"code", "title"},
	}}
}

func toPositionDoc(p *domain.Position) positionDoc {
	return positionDoc{RecordDoc: toRecordDoc(p.Record), Code: p.Code, Title: p.Title, Description: p.Description}
}

func fromPositionDoc(d positionDoc) *domain.Position {
	return &domain.Position{Record: d.record(), Code: d.Code, Title: d.Title, Description: d.Description}
}

// --- Projects ----------------------------------------------------------------

type projectDoc struct {
	RecordDoc `bson:",inline"`
	Code      string `bson:"code"`
	Name      string `bson:"name"`
	ClientID  string `bson:"client_id,omitempty"`
}

type ProjectRepository struct {
	*store[*domain.Project, projectDoc]
}

var _ ports.CatalogRepository[*domain.Project] = (*ProjectRepository)(nil)

func NewProjectRepository(db *mongo.Database) *ProjectRepository {
	return &ProjectRepository{store: &store[*domain.Project, projectDoc]{
		coll:         db.Collection(collectionProjects),
		name:         "project",
		toDoc:        toProjectDoc,
		fromDoc:      fromProjectDoc,
		keyFilter:    func(p *domain.Project) bson.M { return bson.M{"code": p.Code} },
		searchFields: []string{"code", "name"},
	}}
}

func toProjectDoc(p *domain.Project) projectDoc {
	return projectDoc{RecordDoc: toRecordDoc(p.Record), Code: p.Code, Name: p.Name, ClientID: p.ClientID}
}

func fromProjectDoc(d projectDoc) *domain.Project {
	return &domain.Project{Record: d.record(), Code: d.Code, Name: d.Name, ClientID: d.ClientID}
}

// --- Employees ---------------------------------------------------------------

type employeeDoc struct {
	RecordDoc       `bson:",inline"`
	FirstName       string `bson:"first_name"`
	LastName        string `bson:"last_name"`
	Email           string `bson:"email"`
	NormalizedEmail string `bson:"normalized_email"`
	PositionID      string `bson:"position_id,omitempty"`
}

type EmployeeRepository struct {
	*store[*domain.Employee, employeeDoc]
}

var _ ports.CatalogRepository[*domain.Employee] = (*EmployeeRepository)(nil)

func NewEmployeeRepository(db *mongo.Database) *EmployeeRepository {
	return &EmployeeRepository{store: &store[*domain.Employee, employeeDoc]{
		coll:         db.Collection(collectionEmployees),
		name:         "employee",
		toDoc:        toEmployeeDoc,
		fromDoc:      fromEmployeeDoc,
		keyFilter:    func(e *domain.Employee) bson.M { return bson.M{"normalized_email": e.NormalizedEmail} },
		searchFields: []string{"normalized_email", "first_name", "last_name"},
	}}
}

func toEmployeeDoc(e *domain.Employee) employeeDoc {
	return employeeDoc{
		RecordDoc:       toRecordDoc(e.Record),
		FirstName:       e.FirstName,
		LastName:        e.LastName,
		Email:           e.Email,
		NormalizedEmail: e.NormalizedEmail,
		PositionID:      e.PositionID,
	}
}

func fromEmployeeDoc(d employeeDoc) *domain.Employee {
	return &domain.Employee{
		Record:          d.record(),
		FirstName:       d.FirstName,
		LastName:        d.LastName,
		Email:           d.Email,
		NormalizedEmail: d.NormalizedEmail,
		PositionID:      d.PositionID,
	}
}

// --- Clients -----------------------------------------------------------------

type clientDoc struct {
	RecordDoc       `bson:",inline"`
	Name            string `bson:"name"`
	Email           string `bson:"email"`
	NormalizedEmail string `bson:"normalized_email"`
	Phone           string `bson:"phone,omitempty"`
}

type ClientRepository struct {
	*store[*domain.Client, clientDoc]
}

var _ ports.CatalogRepository[*domain.Client] = (*ClientRepository)(nil)

func NewClientRepository(db *mongo.Database) *ClientRepository {
	return &ClientRepository{store: &store[*domain.Client, clientDoc]{
		coll:         db.Collection(collectionClients),
		name:         "client",
		toDoc:        toClientDoc,
		fromDoc:      fromClientDoc,
		keyFilter:    func(c *domain.Client) bson.M { return bson.M{"normalized_email": c.NormalizedEmail} },
		searchFields: []string{"normalized_email", "name"},
	}}
}

func toClientDoc(c *domain.Client) clientDoc {
	return clientDoc{
		RecordDoc:       toRecordDoc(c.Record),
		Name:            c.Name,
		Email:           c.Email,
		NormalizedEmail: c.NormalizedEmail,
		Phone:           c.Phone,
	}
}

func fromClientDoc(d clientDoc) *domain.Client {
	return &domain.Client{
		Record:          d.record(),
		Name:            d.Name,
		Email:           d.Email,
		NormalizedEmail: d.NormalizedEmail,
		Phone:           d.Phone,
	}
}
