package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
)

// Максимальный размер тела формы.
const maxFormSize = 1 << 20

// Протоколы файловых ресурсов, доступные при создании ресурса.
var shareProtocols = []string{"NFS", "CIFS", "GlusterFS", "HDFS", "CephFS", "MAPRFS"}

// Типы правил доступа к снапшоту.
var accessTypes = []string{"ip", "user", "cert", "cephx"}

// createSnapshotForm - форма создания снапшота.
type createSnapshotForm struct {
	Name        string `form:"name" validate:"max=255"`
	Description string `form:"description" validate:"max=255"`
	Force       bool   `form:"force"`
}

// editSnapshotForm - форма изменения снапшота.
type editSnapshotForm struct {
	Name        string `form:"name" validate:"max=255"`
	Description string `form:"description" validate:"max=255"`
}

// createShareForm - форма создания ресурса, в том числе из снапшота.
type createShareForm struct {
	Name        string `form:"name" validate:"max=255"`
	Description string `form:"description" validate:"max=255"`
	Size        int    `form:"size" validate:"required,min=1"`
	ShareProto  string `form:"share_proto" validate:"required,oneof=NFS CIFS GlusterFS HDFS CephFS MAPRFS"`
	SnapshotID  string `form:"snapshot_id" validate:"omitempty,uuid"`
}

// addRuleForm - форма добавления правила доступа к снапшоту.
type addRuleForm struct {
	AccessType string `form:"access_type" validate:"required,oneof=ip user cert cephx"`
	AccessTo   string `form:"access_to" validate:"required,max=255"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Ошибки адресуются по именам полей формы
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("form"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// fieldErrors - ошибки валидации по именам полей формы.
type fieldErrors map[string]string

// decodeForm разбирает тело формы в dst и валидирует его.
// Ошибки валидации возвращаются как fieldErrors, остальные - как error.
func decodeForm(w http.ResponseWriter, r *http.Request, dst any) (fieldErrors, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormSize)
	if err := r.ParseForm(); err != nil {
		return nil, fmt.Errorf("ошибка разбора формы: %w", err)
	}

	input := make(map[string]any, len(r.PostForm))
	for key, values := range r.PostForm {
		if len(values) > 0 {
			input[key] = strings.TrimSpace(values[0])
		}
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "form",
		WeaklyTypedInput: true,
		Result:           dst,
	})
	if err != nil {
		return nil, fmt.Errorf("ошибка создания декодера формы: %w", err)
	}
	if err = decoder.Decode(input); err != nil {
		// Неверный тип значения (например, текст в числовом поле) - ошибка пользователя
		return fieldErrors{"": "Enter valid values."}, nil
	}

	if err = validate.Struct(dst); err != nil {
		var validationErrs validator.ValidationErrors
		if !errors.As(err, &validationErrs) {
			return nil, fmt.Errorf("ошибка валидации формы: %w", err)
		}
		errs := make(fieldErrors, len(validationErrs))
		for _, e := range validationErrs {
			errs[e.Field()] = validationMessage(e)
		}
		return errs, nil
	}
	return nil, nil
}

// validationMessage переводит ошибку валидатора в сообщение для пользователя.
func validationMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "This field is required."
	case "max":
		return fmt.Sprintf("Ensure this value has at most %s characters.", e.Param())
	case "min":
		return fmt.Sprintf("Ensure this value is greater than or equal to %s.", e.Param())
	case "oneof":
		return "Select a valid choice."
	case "uuid":
		return "Enter a valid identifier."
	default:
		return "Enter a valid value."
	}
}
