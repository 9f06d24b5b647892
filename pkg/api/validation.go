package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"

	"bookgrading/pkg/models"
)

// validationError is the body of every 422 response. It describes the first
// problem found, not all of them.
type validationError struct {
	Error   string `json:"error"`
	Field   string `json:"field"`
	Message string `json:"message"`
}

var registerOnce sync.Once

func registerValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(jsonFieldName)
		_ = v.RegisterValidation("genre", func(fl validator.FieldLevel) bool {
			return models.GenreName(fl.Field().String()).Valid()
		})
		_ = v.RegisterValidation("notfuture", func(fl validator.FieldLevel) bool {
			return fl.Field().Int() <= int64(time.Now().Year())
		})
	})
}

func jsonFieldName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	if name == "-" {
		return ""
	}
	if name == "" {
		return f.Name
	}
	return name
}

func genreChoices() string {
	quoted := lo.Map(models.Genres, func(g models.GenreName, _ int) string {
		return "'" + string(g) + "'"
	})
	return strings.Join(quoted[:len(quoted)-1], ", ") + " or " + quoted[len(quoted)-1]
}

func abortValidation(c *gin.Context, kind, field, message string) {
	c.AbortWithStatusJSON(http.StatusUnprocessableEntity, validationError{
		Error:   kind,
		Field:   field,
		Message: message,
	})
}

// abortBindError turns the error from ShouldBindJSON into a 422 response.
func abortBindError(c *gin.Context, err error) {
	var fieldErrs validator.ValidationErrors
	var typeErr *json.UnmarshalTypeError
	var syntaxErr *json.SyntaxError

	switch {
	case errors.As(err, &fieldErrs) && len(fieldErrs) > 0:
		fe := fieldErrs[0]
		abortValidation(c, errorKind(fe), fieldOf(fe), errorMessage(fe))
	case errors.As(err, &typeErr):
		field := typeErr.Field
		if i := strings.LastIndex(field, "."); i >= 0 {
			field = field[i+1:]
		}
		abortValidation(c, "type_error", field, fmt.Sprintf("Input should be a valid %s, got %s", typeErr.Type, typeErr.Value))
	case errors.Is(err, io.EOF):
		abortValidation(c, "missing", "body", "Request body is required")
	case errors.As(err, &syntaxErr), errors.Is(err, io.ErrUnexpectedEOF):
		abortValidation(c, "json_invalid", "body", "JSON decode error: "+err.Error())
	default:
		abortValidation(c, "value_error", "body", err.Error())
	}
}

// fieldOf drops the element index dive adds, "genres[1]" becomes "genres".
func fieldOf(fe validator.FieldError) string {
	field, _, _ := strings.Cut(fe.Field(), "[")
	return field
}

func errorKind(fe validator.FieldError) string {
	isString := fe.Kind() == reflect.String
	switch fe.Tag() {
	case "required":
		return "missing"
	case "min":
		if isString {
			return "string_too_short"
		}
		return "greater_than_equal"
	case "max":
		if isString {
			return "string_too_long"
		}
		return "less_than_equal"
	case "gte":
		return "greater_than_equal"
	case "lte", "notfuture":
		return "less_than_equal"
	case "genre":
		return "enum"
	default:
		return fe.Tag()
	}
}

func errorMessage(fe validator.FieldError) string {
	isString := fe.Kind() == reflect.String
	switch fe.Tag() {
	case "required":
		return "Field required"
	case "min":
		if isString {
			return fmt.Sprintf("String should have at least %s characters", fe.Param())
		}
		return "Input should be greater than or equal to " + fe.Param()
	case "max":
		if isString {
			return fmt.Sprintf("String should have at most %s characters", fe.Param())
		}
		return "Input should be less than or equal to " + fe.Param()
	case "gte":
		return "Input should be greater than or equal to " + fe.Param()
	case "lte":
		return "Input should be less than or equal to " + fe.Param()
	case "notfuture":
		return "Input should be less than or equal to " + strconv.Itoa(time.Now().Year())
	case "genre":
		return "Input should be " + genreChoices()
	default:
		return fe.Error()
	}
}

// bookID parses the :id style path parameter name. Any integer is a valid
// id; zero and negative ones simply name no book.
func bookID(c *gin.Context, param string) (uint, bool) {
	id, err := strconv.ParseInt(c.Param(param), 10, 64)
	if err != nil {
		abortValidation(c, "int_parsing", "book_id", "Input should be a valid integer, unable to parse string as an integer")
		return 0, false
	}
	if id <= 0 {
		bookNotFound(c)
		return 0, false
	}
	return uint(id), true
}
