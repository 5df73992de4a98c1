package app

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// registerValidators adds the custom `isbn` rule to Gin's binding
// engine so book payloads can declare binding:"required,isbn".
func registerValidators() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("isbn", validISBN)
	}
}

// validISBN accepts ISBN-10 and ISBN-13 with optional hyphens/spaces,
// checking the respective check digit.
func validISBN(fl validator.FieldLevel) bool {
	raw := strings.NewReplacer("-", "", " ", "").Replace(fl.Field().String())
	switch len(raw) {
	case 10:
		return validISBN10(raw)
	case 13:
		return validISBN13(raw)
	default:
		return false
	}
}

func validISBN10(s string) bool {
	sum := 0
	for i, r := range s {
		var d int
		if r == 'X' || r == 'x' {
			if i != 9 {
				return false
			}
			d = 10
		} else {
			n, err := strconv.Atoi(string(r))
			if err != nil {
				return false
			}
			d = n
		}
		sum += (10 - i) * d
	}
	return sum%11 == 0
}

func validISBN13(s string) bool {
	sum := 0
	for i, r := range s {
		n, err := strconv.Atoi(string(r))
		if err != nil {
			return false
		}
		if i%2 == 1 {
			n *= 3
		}
		sum += n
	}
	return sum%10 == 0
}
