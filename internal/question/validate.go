package question

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

// Input is the payload of the single-question create form.
//
// It is stricter than a CSV row: every option must be bilingual and the
// correct option must point at one of the submitted options.
type Input struct {
	QuestionText   string        `json:"question_text" validate:"required,notblank"`
	QuestionTextHi string        `json:"question_text_hi" validate:"required,notblank"`
	Options        []OptionInput `json:"options" validate:"min=2,max=4,dive"`
	CorrectOption  *int          `json:"correct_option" validate:"required,min=0,max=3"`
	Explanation    string        `json:"explanation" validate:"required,notblank"`
	ExplanationHi  string        `json:"explanation_hi" validate:"required,notblank"`
	Difficulty     string        `json:"difficulty" validate:"required,oneof=easy medium hard"`
	TopicID        string        `json:"topic_id" validate:"required,notblank"`
	SubtopicID     string        `json:"subtopic_id"`
	IsPYQ          bool          `json:"is_pyq"`
	Year           *int          `json:"year" validate:"omitempty,min=1900,max=2100"`
	Tier           string        `json:"tier"`
	Shift          string        `json:"shift"`
	Tags           []string      `json:"tags" validate:"dive,required,notblank"`
}

// OptionInput is one option of the create form.
type OptionInput struct {
	Text   string `json:"text" validate:"required,notblank"`
	TextHi string `json:"text_hi" validate:"required,notblank"`
}

// FieldError is a validation failure on one input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// FieldErrors collects every failure of one validation pass.
type FieldErrors []FieldError

func (fe FieldErrors) Error() string {
	msgs := make([]string, len(fe))
	for i, e := range fe {
		msgs[i] = e.Field + ": " + e.Message
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

const notBlankTag = "notblank"

// Validator checks form input using struct tags plus the bilingual rules
// that tags cannot express.
type Validator struct {
	validate *validator.Validate
	trans    ut.Translator
}

// NewValidator builds a Validator with English messages and JSON field names.
func NewValidator() *Validator {
	locale := en.New()
	uni := ut.New(locale, locale)
	trans, _ := uni.GetTranslator("en")

	v := validator.New()
	_ = en_translations.RegisterDefaultTranslations(v, trans)
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = v.RegisterValidation(notBlankTag, notBlank)
	_ = v.RegisterTranslation(notBlankTag, trans,
		func(ut.Translator) error { return nil },
		func(_ ut.Translator, fe validator.FieldError) string {
			return fe.Field() + " cannot be blank"
		})

	return &Validator{validate: v, trans: trans}
}

// notBlank rejects strings that are empty after trimming whitespace.
func notBlank(fl validator.FieldLevel) bool {
	if s, ok := fl.Field().Interface().(string); ok {
		return strings.TrimSpace(s) != ""
	}
	return true
}

// Struct runs tag validation on any struct and converts failures to
// FieldErrors. Non-validation errors are returned unchanged.
func (v *Validator) Struct(s any) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	out := make(FieldErrors, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, FieldError{
			Field:   fieldPath(fe.Namespace()),
			Message: fe.Translate(v.trans),
		})
	}
	return out
}

// Check validates a create-form payload. It returns FieldErrors listing
// every failure, or nil.
func (v *Validator) Check(in Input) error {
	var out FieldErrors
	if err := v.Struct(in); err != nil {
		var fe FieldErrors
		if !errors.As(err, &fe) {
			return err
		}
		out = append(out, fe...)
	}

	if in.CorrectOption != nil && *in.CorrectOption >= 0 && *in.CorrectOption <= 3 &&
		*in.CorrectOption >= len(in.Options) {
		out = append(out, FieldError{
			Field:   "correct_option",
			Message: "correct_option must reference one of the provided options",
		})
	}
	if in.IsPYQ && in.Year == nil {
		out = append(out, FieldError{Field: "year", Message: "year is required for PYQ questions"})
	}

	if len(out) > 0 {
		return out
	}
	return nil
}

// Build converts validated input into a Question. Call Check first.
func (in Input) Build() Question {
	q := Question{
		Body:          []ContentBlock{TextBlock(strings.TrimSpace(in.QuestionText), strings.TrimSpace(in.QuestionTextHi))},
		Explanation:   in.Explanation,
		ExplanationHi: in.ExplanationHi,
		Difficulty:    Difficulty(in.Difficulty),
		TopicID:       in.TopicID,
		SubtopicID:    in.SubtopicID,
		IsPYQ:         in.IsPYQ,
		Tags:          in.Tags,
	}
	for _, o := range in.Options {
		q.Options = append(q.Options, Option{Text: o.Text, TextHi: o.TextHi})
	}
	if in.CorrectOption != nil {
		q.CorrectOption = *in.CorrectOption
	}
	if in.IsPYQ && in.Year != nil {
		q.PYQ = &PYQ{Year: *in.Year, Tier: in.Tier, Shift: in.Shift}
	}
	return q
}

// fieldPath drops the leading struct name from a validator namespace:
// "Input.options[1].text_hi" becomes "options[1].text_hi".
func fieldPath(ns string) string {
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

// Field returns the first error for the named field, if any.
func (fe FieldErrors) Field(name string) (FieldError, bool) {
	for _, e := range fe {
		if e.Field == name {
			return e, true
		}
	}
	return FieldError{}, false
}
