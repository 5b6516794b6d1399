package account

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

// newValidator reports fields by their json names so callers see the wire name.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// ValidateCreate checks a create payload and returns its normalized form.
// Whitespace-only values count as missing; roles default to an empty set.
func ValidateCreate(req CreateUserRequest) (CreateInput, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.LastName = strings.TrimSpace(req.LastName)
	req.Email = strings.TrimSpace(req.Email)
	req.Phone = strings.TrimSpace(req.Phone)
	if strings.TrimSpace(req.Password) == "" {
		req.Password = ""
	}

	if err := validate.Struct(req); err != nil {
		return CreateInput{}, invalidArgument(err)
	}

	roles := make([]string, 0, len(req.Roles))
	for _, role := range req.Roles {
		if role = strings.TrimSpace(role); role != "" {
			roles = append(roles, role)
		}
	}

	return CreateInput{
		Name:     req.Name,
		LastName: req.LastName,
		Email:    req.Email,
		Password: req.Password,
		Phone:    req.Phone,
		Roles:    roles,
	}, nil
}

// ValidateUpdate checks an update payload. Only the id is required.
func ValidateUpdate(req UpdateUserRequest) (UpdateInput, error) {
	req.ID = strings.TrimSpace(req.ID)
	if err := validate.Struct(req); err != nil {
		return UpdateInput{}, invalidArgument(err)
	}

	password := req.Password
	if strings.TrimSpace(password) == "" {
		password = ""
	}

	return UpdateInput{
		ID:       req.ID,
		Name:     strings.TrimSpace(req.Name),
		LastName: strings.TrimSpace(req.LastName),
		Email:    strings.TrimSpace(req.Email),
		Phone:    strings.TrimSpace(req.Phone),
		Password: password,
	}, nil
}

// ValidateDelete checks a delete payload and returns the identity id.
func ValidateDelete(req DeleteUserRequest) (string, error) {
	req.UID = strings.TrimSpace(req.UID)
	if err := validate.Struct(req); err != nil {
		return "", invalidArgument(err)
	}
	return req.UID, nil
}

func invalidArgument(err error) *Error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		field := verrs[0].Field()
		return &Error{
			Kind:    KindInvalidArgument,
			Field:   field,
			Message: fmt.Sprintf("The function must be called with a non-empty %q argument.", field),
		}
	}
	return &Error{Kind: KindInvalidArgument, Message: "The function was called with an invalid payload.", Err: err}
}
