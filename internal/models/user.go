package models

import (
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/dealflow/dealflow-api/internal/scope"
)

// User is the authenticated caller as derived from bearer-token claims.
// User records themselves are owned by the identity provider.
type User struct {
	ID    primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Sub   string             `bson:"sub" json:"sub"` // token subject
	Role  string             `bson:"role" json:"role"`
	Email string             `bson:"email" json:"email"`
	Name  string             `bson:"name" json:"name"`
}

// UserFromClaims maps verified token claims onto a User. The subject must be a
// hex ObjectID because deals and activities reference owners by ObjectID.
func UserFromClaims(claims map[string]interface{}) (*User, bool) {
	sub, _ := claims["sub"].(string)
	id, err := primitive.ObjectIDFromHex(sub)
	if err != nil {
		return nil, false
	}
	role, _ := claims["role"].(string)
	if role == "" {
		role = realmRole(claims)
	}
	email, _ := claims["email"].(string)
	name, _ := claims["name"].(string)
	return &User{ID: id, Sub: sub, Role: strings.ToLower(strings.TrimSpace(role)), Email: email, Name: name}, true
}

// realmRole picks from Keycloak realm roles. Keycloak lists built-in roles such
// as offline_access first, so an elevated role wins wherever it appears.
func realmRole(claims map[string]interface{}) string {
	ra, ok := claims["realm_access"].(map[string]interface{})
	if !ok {
		return ""
	}
	roles, _ := ra["roles"].([]interface{})
	first := ""
	for _, r := range roles {
		name, ok := r.(string)
		if !ok {
			continue
		}
		if scope.IsElevated(name) {
			return name
		}
		if first == "" {
			first = name
		}
	}
	return first
}
