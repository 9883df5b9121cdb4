package validator

import (
	"errors"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	govalidator "github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	"github.com/stemsi/exstem-access/internal/model"
)

// trans is the singleton English translator for validation errors.
var trans ut.Translator

// Setup registers the validator with English translations and the
// question rules on Gin's binding engine. Call once during startup.
func Setup() {
	v, ok := binding.Validator.Engine().(*govalidator.Validate)
	if !ok {
		return
	}
	Register(v)
}

// Register wires tag names, translations and custom rules into v.
func Register(v *govalidator.Validate) {
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	enLocale := en.New()
	uni := ut.New(enLocale, enLocale)
	trans, _ = uni.GetTranslator("en")
	_ = en_translations.RegisterDefaultTranslations(v, trans)

	_ = v.RegisterValidation("question_kind", validQuestionKind)
	_ = v.RegisterValidation("notblank", notBlank)
	v.RegisterStructValidation(validateQuestion, model.CreateQuestionRequest{})

	registerMessage(v, "notblank", "{0} must not be blank")
	registerMessage(v, "question_kind", "{0} must be one of multiple-choice, true-false, short-answer")
	registerMessage(v, "mc_options", "{0} needs at least two choices for a multiple-choice question")
	registerMessage(v, "mc_answer", "{0} must be one of the options")
	registerMessage(v, "tf_answer", "{0} must be true or false")
}

func registerMessage(v *govalidator.Validate, tag, text string) {
	_ = v.RegisterTranslation(tag, trans,
		func(ut ut.Translator) error { return ut.Add(tag, text, true) },
		func(ut ut.Translator, fe govalidator.FieldError) string {
			msg, _ := ut.T(tag, fe.Field())
			return msg
		},
	)
}

func validQuestionKind(fl govalidator.FieldLevel) bool {
	switch model.QuestionKind(fl.Field().String()) {
	case model.QuestionKindMultipleChoice, model.QuestionKindTrueFalse, model.QuestionKindShortAnswer:
		return true
	}
	return false
}

func notBlank(fl govalidator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}

// validateQuestion checks the rules that span several fields of a question.
func validateQuestion(sl govalidator.StructLevel) {
	q := sl.Current().Interface().(model.CreateQuestionRequest)

	if strings.TrimSpace(q.CorrectAnswer) == "" {
		sl.ReportError(q.CorrectAnswer, "correct_answer", "CorrectAnswer", "notblank", "")
		return
	}

	switch model.QuestionKind(q.Kind) {
	case model.QuestionKindMultipleChoice:
		if len(q.Options) < 2 {
			sl.ReportError(q.Options, "options", "Options", "mc_options", "")
			return
		}
		for _, o := range q.Options {
			if strings.EqualFold(strings.TrimSpace(o), strings.TrimSpace(q.CorrectAnswer)) {
				return
			}
		}
		sl.ReportError(q.CorrectAnswer, "correct_answer", "CorrectAnswer", "mc_answer", "")
	case model.QuestionKindTrueFalse:
		switch strings.ToLower(strings.TrimSpace(q.CorrectAnswer)) {
		case "true", "false":
		default:
			sl.ReportError(q.CorrectAnswer, "correct_answer", "CorrectAnswer", "tf_answer", "")
		}
	}
}

// TranslateErrors takes a binding/validation error and returns a map of
// field path to human-readable message. Nested fields keep their index,
// e.g. "questions[1].options". Anything that is not a validation error
// comes back under "detail".
func TranslateErrors(err error) map[string]string {
	fields := make(map[string]string)

	var ve govalidator.ValidationErrors
	if errors.As(err, &ve) {
		for _, fe := range ve {
			fields[fieldPath(fe)] = fe.Translate(trans)
		}
		return fields
	}

	fields["detail"] = err.Error()
	return fields
}

// fieldPath drops the root struct name from the namespace.
func fieldPath(fe govalidator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

// Bind binds and validates the request body into dst.
// Returns nil on success or a translated field error map on failure.
func Bind(c *gin.Context, dst any) map[string]string {
	if err := c.ShouldBindJSON(dst); err != nil {
		return TranslateErrors(err)
	}
	return nil
}
