// Package flagx binds cobra flags to tagged structs, the way httpx binds requests.
//
//	type PublishFlags struct {
//	    Title  string        `flag:"title,t" usage:"article title" required:"true"`
//	    Window time.Duration `flag:"window" default:"336h"`
//	}
//
//	var f PublishFlags
//	_ = flagx.Bind(cmd, &f)      // when building the command
//	_ = flagx.Parse(cmd, &f)     // inside RunE
package flagx

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var durationType = reflect.TypeOf(time.Duration(0))

type field struct {
	index    int
	name     string
	short    string
	usage    string
	def      string
	required bool
	typ      reflect.Type
}

// fields tagged fields of target, which must be a pointer to struct
func fields(target any) (reflect.Value, []field, error) {
	v := reflect.ValueOf(target)
	if v.Kind() != reflect.Ptr || v.Elem().Kind() != reflect.Struct {
		return reflect.Value{}, nil, fmt.Errorf("target must be a pointer to struct, got %T", target)
	}
	v = v.Elem()
	t := v.Type()

	var out []field
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		tag := sf.Tag.Get("flag")
		if tag == "" || !v.Field(i).CanSet() {
			continue
		}
		name, short, _ := strings.Cut(tag, ",")
		out = append(out, field{
			index:    i,
			name:     name,
			short:    short,
			usage:    sf.Tag.Get("usage"),
			def:      sf.Tag.Get("default"),
			required: sf.Tag.Get("required") == "true",
			typ:      sf.Type,
		})
	}
	return v, out, nil
}

// Bind registers one local flag per tagged field
func Bind(cmd *cobra.Command, target any) error {
	return bind(cmd.Flags(), cmd.MarkFlagRequired, target)
}

// BindPersistent registers the flags on cmd and all of its subcommands
func BindPersistent(cmd *cobra.Command, target any) error {
	return bind(cmd.PersistentFlags(), cmd.MarkPersistentFlagRequired, target)
}

func bind(flags *pflag.FlagSet, markRequired func(name string) error, target any) error {
	_, fs, err := fields(target)
	if err != nil {
		return err
	}

	for _, f := range fs {
		switch {
		case f.typ == durationType:
			def, err := parseDefault(f, time.ParseDuration)
			if err != nil {
				return err
			}
			flags.DurationP(f.name, f.short, def, f.usage)
		case f.typ.Kind() == reflect.String:
			flags.StringP(f.name, f.short, f.def, f.usage)
		case f.typ.Kind() == reflect.Int:
			def, err := parseDefault(f, strconv.Atoi)
			if err != nil {
				return err
			}
			flags.IntP(f.name, f.short, def, f.usage)
		case f.typ.Kind() == reflect.Bool:
			def, err := parseDefault(f, strconv.ParseBool)
			if err != nil {
				return err
			}
			flags.BoolP(f.name, f.short, def, f.usage)
		case f.typ.Kind() == reflect.Slice && f.typ.Elem().Kind() == reflect.String:
			var def []string
			if f.def != "" {
				def = strings.Split(f.def, ",")
			}
			flags.StringSliceP(f.name, f.short, def, f.usage)
		default:
			return fmt.Errorf("flag %s: unsupported field type %s", f.name, f.typ)
		}

		if f.required {
			if err := markRequired(f.name); err != nil {
				return err
			}
		}
	}
	return nil
}

func parseDefault[T any](f field, parse func(string) (T, error)) (T, error) {
	var zero T
	if f.def == "" {
		return zero, nil
	}
	v, err := parse(f.def)
	if err != nil {
		return zero, fmt.Errorf("flag %s: invalid default %q: %w", f.name, f.def, err)
	}
	return v, nil
}

// Parse copies flag values into target, then validates it when it implements
// validation.Validatable
func Parse(cmd *cobra.Command, target any) error {
	v, fs, err := fields(target)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	for _, f := range fs {
		dst := v.Field(f.index)
		switch {
		case f.typ == durationType:
			d, err := flags.GetDuration(f.name)
			if err != nil {
				return err
			}
			dst.SetInt(int64(d))
		case f.typ.Kind() == reflect.String:
			s, err := flags.GetString(f.name)
			if err != nil {
				return err
			}
			dst.SetString(s)
		case f.typ.Kind() == reflect.Int:
			n, err := flags.GetInt(f.name)
			if err != nil {
				return err
			}
			dst.SetInt(int64(n))
		case f.typ.Kind() == reflect.Bool:
			b, err := flags.GetBool(f.name)
			if err != nil {
				return err
			}
			dst.SetBool(b)
		case f.typ.Kind() == reflect.Slice && f.typ.Elem().Kind() == reflect.String:
			ss, err := flags.GetStringSlice(f.name)
			if err != nil {
				return err
			}
			dst.Set(reflect.ValueOf(ss))
		default:
			return fmt.Errorf("flag %s: unsupported field type %s", f.name, f.typ)
		}
	}

	if validatable, ok := target.(validation.Validatable); ok {
		return validatable.Validate()
	}
	return nil
}
