package account

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateCreate_Normalizes(t *testing.T) {
	in, err := ValidateCreate(CreateUserRequest{
		Name:     " Ada ",
		LastName: "Lovelace\t",
		Email:    "  ada@example.com ",
		Password: " keep spaces ",
		Phone:    " 555-0100 ",
		Roles:    []string{" admin ", "", "  "},
	})
	require.NoError(t, err)

	assert.Equal(t, "Ada", in.Name)
	assert.Equal(t, "Lovelace", in.LastName)
	assert.Equal(t, "ada@example.com", in.Email)
	assert.Equal(t, " keep spaces ", in.Password)
	assert.Equal(t, "555-0100", in.Phone)
	assert.Equal(t, []string{"admin"}, in.Roles)
}

func TestValidateCreate_RolesDefaultToEmpty(t *testing.T) {
	in, err := ValidateCreate(validCreate())
	require.NoError(t, err)
	assert.NotNil(t, in.Roles)
	assert.Empty(t, in.Roles)
}

func TestValidateCreate_ReportsFirstMissingField(t *testing.T) {
	_, err := ValidateCreate(CreateUserRequest{Email: "a@b.com", Password: "   "})
	require.Error(t, err)

	assert.Equal(t, KindInvalidArgument, KindOf(err))
	assert.Equal(t, "name", FieldOf(err))
	assert.Contains(t, err.Error(), `"name"`)
}

func TestValidateUpdate(t *testing.T) {
	in, err := ValidateUpdate(UpdateUserRequest{ID: " uid-1 ", Email: " x@b.com ", Password: "  "})
	require.NoError(t, err)
	assert.Equal(t, "uid-1", in.ID)
	assert.Equal(t, "x@b.com", in.Email)
	assert.Empty(t, in.Password)
	assert.False(t, in.Empty())

	in, err = ValidateUpdate(UpdateUserRequest{ID: "uid-1", Name: " "})
	require.NoError(t, err)
	assert.True(t, in.Empty())

	_, err = ValidateUpdate(UpdateUserRequest{ID: "  "})
	assert.Equal(t, "id", FieldOf(err))
}

func TestValidateDelete(t *testing.T) {
	uid, err := ValidateDelete(DeleteUserRequest{UID: " uid-9 "})
	require.NoError(t, err)
	assert.Equal(t, "uid-9", uid)

	_, err = ValidateDelete(DeleteUserRequest{})
	assert.Equal(t, KindInvalidArgument, KindOf(err))
	assert.Equal(t, "uid", FieldOf(err))
}

func TestProfilePatchFields(t *testing.T) {
	assert.Empty(t, ProfilePatch{}.Fields())
	assert.Equal(t,
		map[string]string{"lastName": "L", "phone": "1"},
		ProfilePatch{LastName: "L", Phone: "1"}.Fields())
}
