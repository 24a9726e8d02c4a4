// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package item

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/tejzpr/armis/internal/apierr"
)

const (
	typeOneOf     = "rule documentation snippet note reference"
	priorityOneOf = "low medium high critical"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report json field names so messages match the wire format
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks that all mandatory draft fields are present and valid
func (d Draft) Validate() error {
	return validateStruct(d)
}

// Validate checks only the fields the patch supplies. Imported items
// with missing fields can still be patched.
func (p Patch) Validate() error {
	var missing, invalid []string
	for _, f := range []struct {
		name string
		v    *string
	}{{"title", p.Title}, {"content", p.Content}, {"category", p.Category}} {
		if f.v != nil && strings.TrimSpace(*f.v) == "" {
			missing = append(missing, f.name)
		}
	}
	if p.Type != nil {
		if err := validate.Var(string(*p.Type), "oneof="+typeOneOf); err != nil {
			invalid = append(invalid, fmt.Sprintf("type must be one of [%s]", typeOneOf))
		}
	}
	if p.Priority != nil {
		if err := validate.Var(string(*p.Priority), "oneof="+priorityOneOf); err != nil {
			invalid = append(invalid, fmt.Sprintf("priority must be one of [%s]", priorityOneOf))
		}
	}
	return fieldErrors(missing, invalid)
}

func validateStruct(s interface{}) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apierr.Validation("invalid context item: %v", err)
	}

	var missing, invalid []string
	for _, fe := range verrs {
		if fe.Tag() == "required" {
			missing = append(missing, fe.Field())
			continue
		}
		invalid = append(invalid, fmt.Sprintf("%s must be one of [%s]", fe.Field(), fe.Param()))
	}

	return fieldErrors(missing, invalid)
}

func fieldErrors(missing, invalid []string) error {
	switch {
	case len(missing) > 0:
		e := apierr.Validation("Missing required fields: %s", strings.Join(missing, ", "))
		if len(invalid) > 0 {
			e.WithDetails(strings.Join(invalid, "; "))
		}
		return e
	case len(invalid) > 0:
		return apierr.Validation("Invalid fields: %s", strings.Join(invalid, "; "))
	default:
		return nil
	}
}
