package services

import (
	"errors"
	"reflect"
	"regexp"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	// ErrNotFound возвращается, когда запись отсутствует или недоступна вызывающему
	ErrNotFound = errors.New("запись не найдена")
	// ErrInvalidCredentials неверный логин или пароль
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// ValidationError содержит сообщения об ошибках по полям формы
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	messages := make([]string, 0, len(keys))
	for _, k := range keys {
		messages = append(messages, e.Fields[k])
	}
	return strings.Join(messages, "; ")
}

// fieldError создает ValidationError для одного поля
func fieldError(field, message string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: message}}
}

var (
	hasLetter = regexp.MustCompile(`[A-Za-z]`)
	hasDigit  = regexp.MustCompile(`[0-9]`)
)

// newValidator создает валидатор с именами полей из тега form и кастомным правилом password
func newValidator() *validator.Validate {
	validate := validator.New()

	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		if name := strings.Split(fld.Tag.Get("form"), ",")[0]; name != "" && name != "-" {
			return name
		}
		if name := strings.Split(fld.Tag.Get("json"), ",")[0]; name != "" && name != "-" {
			return name
		}
		return fld.Name
	})

	// Пароль должен содержать хотя бы одну букву и одну цифру
	validate.RegisterValidation("password", func(fl validator.FieldLevel) bool {
		password := fl.Field().String()
		return hasLetter.MatchString(password) && hasDigit.MatchString(password)
	})

	return validate
}

// validateStruct валидирует DTO и возвращает ValidationError с сообщениями по полям
func validateStruct(validate *validator.Validate, dto interface{}) error {
	err := validate.Struct(dto)
	if err == nil {
		return nil
	}
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return err
	}

	fields := make(map[string]string, len(validationErrors))
	for _, e := range validationErrors {
		field := e.Field()
		switch e.Tag() {
		case "required":
			fields[field] = "поле " + field + " обязательно"
		case "email":
			fields[field] = "поле " + field + " должно содержать корректный email"
		case "min":
			fields[field] = "поле " + field + " должно содержать минимум " + e.Param() + " символов"
		case "max":
			fields[field] = "поле " + field + " должно содержать максимум " + e.Param() + " символов"
		case "gte":
			fields[field] = "поле " + field + " должно быть больше или равно " + e.Param()
		case "lte":
			fields[field] = "поле " + field + " должно быть меньше или равно " + e.Param()
		case "oneof":
			fields[field] = "поле " + field + " должно быть одним из: " + e.Param()
		case "eqfield":
			fields[field] = "поле " + field + " должно совпадать с полем " + e.Param()
		case "numeric":
			fields[field] = "поле " + field + " должно содержать только цифры"
		case "datetime":
			fields[field] = "поле " + field + " должно быть датой в формате " + e.Param()
		case "password":
			fields[field] = "пароль должен содержать хотя бы одну букву и одну цифру"
		default:
			fields[field] = "поле " + field + " заполнено неверно"
		}
	}
	return &ValidationError{Fields: fields}
}
