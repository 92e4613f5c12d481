package agent

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mitchellh/mapstructure"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

func init() {
	// Report argument names as the client sent them.
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
}

// decodeArgs copies the tool call arguments into out. Numbers may arrive as
// JSON numbers or strings; embedded structs are flattened.
func decodeArgs(args map[string]interface{}, out interface{}) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		Squash:           true,
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	if err := decoder.Decode(args); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	if err := validate.Struct(out); err != nil {
		return describeValidation(err)
	}
	return nil
}

func argsOf(request mcp.CallToolRequest) map[string]interface{} {
	args := request.GetArguments()
	if args == nil {
		return map[string]interface{}{}
	}
	return args
}

func describeValidation(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("missing or invalid '%s' argument", fe.Field()))
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("'%s' must be one of: %s", fe.Field(), fe.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("invalid '%s' argument (%s)", fe.Field(), fe.Tag()))
		}
	}
	return errors.New(strings.Join(msgs, "; "))
}
