package injector

import (
	"context"
	"fmt"
	"os"
	"reflect"
	"regexp"
	"strings"
)

// pattern captures ${type.key} references, e.g. ${env.API_KEY},
// ${ssm./app/config}, ${secret.db_pass}.
var pattern = regexp.MustCompile(`\$\{(env|ssm|secret)\.([^}]+)\}`)

// Injector resolves environment, SSM and Secrets Manager references found
// in struct fields, string maps and env tags. The AWS clients are built
// lazily on first use; tests inject fakes through the exported fields.
type Injector struct {
	SSM     SSMClient
	Secrets SecretsClient
}

func New() *Injector {
	return &Injector{}
}

func (i *Injector) Inject(ctx context.Context, target interface{}) error {
	v := reflect.ValueOf(target)
	if v.Kind() != reflect.Ptr || v.IsNil() {
		return fmt.Errorf("target must be a non-nil pointer to a struct")
	}
	return i.injectRecursive(ctx, v.Elem())
}

func (i *Injector) injectRecursive(ctx context.Context, v reflect.Value) error {
	switch v.Kind() {
	case reflect.Struct:
		t := v.Type()
		for k := 0; k < t.NumField(); k++ {
			field := t.Field(k)
			value := v.Field(k)

			if err := i.processStructTags(field, value); err != nil {
				return err
			}

			if value.Kind() == reflect.String && value.CanSet() {
				newValue, err := i.interpolateString(ctx, value.String())
				if err != nil {
					return err
				}
				value.SetString(newValue)
			}

			if value.CanSet() || value.Kind() == reflect.Ptr {
				if err := i.injectRecursive(ctx, value); err != nil {
					return err
				}
			}
		}

	case reflect.Map:
		if v.Type().Key().Kind() == reflect.String {
			if !v.IsNil() {
				i.injectMap(ctx, v)
			}
		}

	case reflect.Ptr:
		if !v.IsNil() {
			return i.injectRecursive(ctx, v.Elem())
		}

	case reflect.Slice:
		for j := 0; j < v.Len(); j++ {
			if err := i.injectRecursive(ctx, v.Index(j)); err != nil {
				return err
			}
		}
	}
	return nil
}

// processStructTags applies plain env:"NAME" tags. A set variable always
// wins over whatever the YAML carried.
func (i *Injector) processStructTags(field reflect.StructField, value reflect.Value) error {
	if !value.CanSet() {
		return nil
	}
	if tag := field.Tag.Get("env"); tag != "" {
		if val, exists := os.LookupEnv(tag); exists {
			return setField(value, val)
		}
	}
	return nil
}

// interpolateString substitutes every ${...} reference in input.
func (i *Injector) interpolateString(ctx context.Context, input string) (string, error) {
	if !strings.Contains(input, "${") {
		return input, nil
	}

	var err error
	result := pattern.ReplaceAllStringFunc(input, func(match string) string {
		content := match[2 : len(match)-1] // env.VAR_NAME
		parts := strings.SplitN(content, ".", 2)
		if len(parts) != 2 {
			return match
		}

		val, resolveErr := i.fetchValue(ctx, parts[0], parts[1])
		if resolveErr != nil {
			err = resolveErr
			return match
		}
		return fmt.Sprintf("%v", val)
	})

	return result, err
}

// injectMap walks string-keyed maps, interpolating string values and
// descending into nested maps.
func (i *Injector) injectMap(ctx context.Context, v reflect.Value) {
	iter := v.MapRange()
	updates := make(map[string]interface{})

	for iter.Next() {
		key := iter.Key()
		val := iter.Value()

		elem := val
		if val.Kind() == reflect.Interface {
			elem = val.Elem()
		}
		if !elem.IsValid() {
			continue
		}

		if elem.Kind() == reflect.String {
			newVal, _ := i.interpolateString(ctx, elem.String())
			updates[key.String()] = newVal
		} else if elem.Kind() == reflect.Map {
			if subMap, ok := elem.Interface().(map[string]interface{}); ok {
				subVal := reflect.ValueOf(subMap)
				i.injectMap(ctx, subVal)
			}
		}
	}

	for k, val := range updates {
		v.SetMapIndex(reflect.ValueOf(k), reflect.ValueOf(val))
	}
}

// fetchValue resolves one reference by source type.
func (i *Injector) fetchValue(ctx context.Context, sourceType, key string) (interface{}, error) {
	switch sourceType {
	case "env":
		if val, exists := os.LookupEnv(key); exists {
			return val, nil
		}
		return "", nil // unset variables resolve to empty, not an error

	case "ssm":
		client, err := i.ssmClient(ctx)
		if err != nil {
			return nil, err
		}
		return getParameter(ctx, client, key, true)

	case "secret":
		client, err := i.secretsClient(ctx)
		if err != nil {
			return nil, err
		}
		return getSecret(ctx, client, key)
	}

	return nil, nil
}

func setField(field reflect.Value, val interface{}) error {
	switch field.Kind() {
	case reflect.String:
		field.SetString(fmt.Sprintf("%v", val))
	}
	return nil
}
