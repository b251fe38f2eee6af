package mongo

import (
	"errors"
	"regexp"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/x/mongo/driver"

	"github.com/northwind/backoffice/internal/core/domain"
)

const writeConflictCode = 112

var indexNamePattern = regexp.MustCompile(`index: ([A-Za-z0-9_.$-]+)`)

// conflictMessages maps unique index names to end-user messages.
var conflictMessages = map[string]string{
	indexAccountsEmail:  "an account with this email already exists",
	indexTokensHash:     "verification token already exists",
	indexPositionsCode:  "a position with this code already exists",
	indexProjectsCode:   "a project with this code already exists",
	indexEmployeesEmail: "an employee with this email already exists",
	indexClientsEmail:   "a client with this email already exists",
}

// translate is the single point where MongoDB uniqueness and write-conflict
// failures become domain conflicts. Every other error is returned unchanged.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := domain.KindOf(err); ok {
		return err
	}

	if mongo.IsDuplicateKeyError(err) {
		name := constraintName(err)
		msg, ok := conflictMessages[name]
		if !ok {
			msg = domain.ErrConflict.Message
		}
		return domain.Conflict(msg, name)
	}

	if isWriteConflict(err) {
		return domain.Conflict("the record was changed by another request, try again", "")
	}

	return err
}

func isWriteConflict(err error) bool {
	var se mongo.ServerError
	if !errors.As(err, &se) {
		return false
	}
	return se.HasErrorCode(writeConflictCode) || se.HasErrorLabel(driver.TransientTransactionError)
}

// constraintName extracts the index name from an E11000 error message.
func constraintName(err error) string {
	m := indexNamePattern.FindStringSubmatch(err.Error())
	if len(m) < 2 {
		return ""
	}
	return m[1]
}
