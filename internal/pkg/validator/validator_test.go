package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type sample struct {
	Name  string   `json:"name" validate:"required,max=5"`
	Tags  []string `json:"tags" validate:"omitempty,dive,oneof=a b"`
	Inner string   `validate:"omitempty,email"`
}

func TestValidate(t *testing.T) {
	assert.Nil(t, Validate(sample{Name: "ok", Tags: []string{"a"}}))

	errs := Validate(sample{Tags: []string{"a", "z"}, Inner: "nope"})
	assert.Equal(t, map[string]string{
		"name":    "required",
		"tags[1]": "oneof",
		"Inner":   "email",
	}, errs)
}

func TestValidate_NotAStruct(t *testing.T) {
	errs := Validate(42)
	assert.Contains(t, errs, "_")
}
