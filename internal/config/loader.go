package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// LookupFunc resolves an environment variable.
type LookupFunc func(key string) (string, bool)

// Option adjusts how configuration is loaded.
type Option func(*loadOptions)

type loadOptions struct {
	offline bool
}

// Offline drops the requirement on fields tagged offline:"optional",
// for runs that never open the database.
func Offline() Option {
	return func(o *loadOptions) { o.offline = true }
}

// Load reads configuration from the process environment.
// It applies defaults for unset values and validates the result.
func Load(opts ...Option) (*Config, error) {
	return LoadFrom(os.LookupEnv, opts...)
}

// LoadFrom reads configuration through lookup.
func LoadFrom(lookup LookupFunc, opts ...Option) (*Config, error) {
	var o loadOptions
	for _, opt := range opts {
		opt(&o)
	}
	cfg := &Config{}

	var missing []string
	if err := loadStruct(reflect.ValueOf(cfg).Elem(), lookup, o, &missing); err != nil {
		return nil, fmt.Errorf("config load: %w", err)
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("config load: required environment variables not set: %s",
			strings.Join(missing, ", "))
	}

	if err := cfg.validate(o.offline); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// loadStruct recursively populates struct fields from environment variables.
// Unset required variables are collected in missing rather than failing
// on the first.
func loadStruct(v reflect.Value, lookup LookupFunc, o loadOptions, missing *[]string) error {
	t := v.Type()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		fieldVal := v.Field(i)

		if !fieldVal.CanSet() {
			continue
		}

		if field.Type.Kind() == reflect.Struct {
			if err := loadStruct(fieldVal, lookup, o, missing); err != nil {
				return err
			}
			continue
		}

		envName := field.Tag.Get("env")
		if envName == "" {
			continue
		}

		value := getenv(lookup, envName)
		if alt := field.Tag.Get("envAlt"); value == "" && alt != "" {
			value = getenv(lookup, alt)
		}

		if value == "" {
			optional := o.offline && field.Tag.Get("offline") == "optional"
			if field.Tag.Get("required") == "true" && !optional {
				*missing = append(*missing, envName)
				continue
			}
			value = field.Tag.Get("default")
		}
		if value == "" {
			continue
		}

		if err := setField(fieldVal, value); err != nil {
			return fmt.Errorf("invalid value for %s=%q: %w", envName, value, err)
		}
	}

	return nil
}

func getenv(lookup LookupFunc, key string) string {
	v, _ := lookup(key)
	return strings.TrimSpace(v)
}

// setField sets a reflect.Value from a string based on its type.
func setField(field reflect.Value, value string) error {
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int64:
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			d, err := time.ParseDuration(value)
			if err != nil {
				return fmt.Errorf("invalid duration: %w", err)
			}
			field.Set(reflect.ValueOf(d))
			return nil
		}
		i, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid integer: %w", err)
		}
		field.SetInt(i)

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean: %w", err)
		}
		field.SetBool(b)

	default:
		return fmt.Errorf("unsupported field type: %s", field.Kind())
	}

	return nil
}
