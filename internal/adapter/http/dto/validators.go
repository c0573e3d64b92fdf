package dto

import (
	"html"
	"reflect"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var (
	accountNumberRe = regexp.MustCompile(`^[0-9]{8}$`)
	currencyCodeRe  = regexp.MustCompile(`^[A-Za-z]{3}$`)
	phoneRe         = regexp.MustCompile(`^\+?[0-9][0-9 \-]{5,19}$`)
)

func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("account_number", matches(accountNumberRe))
		_ = v.RegisterValidation("currency_code", matches(currencyCodeRe))
		_ = v.RegisterValidation("phone", matches(phoneRe))
	}
}

func matches(re *regexp.Regexp) validator.Func {
	return func(fl validator.FieldLevel) bool {
		return re.MatchString(fl.Field().String())
	}
}

// ValidAccountNumber reports whether s has the shape of an account number.
func ValidAccountNumber(s string) bool {
	return accountNumberRe.MatchString(s)
}

// SanitizeStruct trims whitespace and HTML-escapes every exported string
// field of a struct pointer. Fields tagged `sanitize:"-"` are left alone.
func SanitizeStruct(v interface{}) {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Ptr || rv.Elem().Kind() != reflect.Struct {
		return
	}
	sanitizeFields(rv.Elem())
}

func sanitizeFields(rv reflect.Value) {
	rt := rv.Type()
	for i := 0; i < rv.NumField(); i++ {
		f := rv.Field(i)
		if !f.CanSet() || rt.Field(i).Tag.Get("sanitize") == "-" {
			continue
		}
		switch f.Kind() {
		case reflect.String:
			f.SetString(sanitize(f.String()))
		case reflect.Ptr:
			if !f.IsNil() && f.Elem().Kind() == reflect.String {
				f.Elem().SetString(sanitize(f.Elem().String()))
			}
		}
	}
}

func sanitize(s string) string {
	return html.EscapeString(strings.TrimSpace(s))
}
