package manifest

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"golang.org/x/mod/semver"
)

var (
	packageNamePattern = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)
	versionPattern     = regexp.MustCompile(`^(0|[1-9]\d*)\.(0|[1-9]\d*)\.(0|[1-9]\d*)(?:(a|b|rc)(0|[1-9]\d*)|\.dev(0|[1-9]\d*))?$`)
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// ValidationError collects every problem found in one provider manifest.
type ValidationError struct {
	PackageName string
	Problems    []string
}

func (e *ValidationError) Error() string {
	name := e.PackageName
	if name == "" {
		name = "<unnamed>"
	}
	return fmt.Sprintf("provider %s: %s", name, strings.Join(e.Problems, "; "))
}

func structValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(field reflect.StructField) string {
			name := strings.SplitN(field.Tag.Get("yaml"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		_ = validate.RegisterValidation("package_name", func(fl validator.FieldLevel) bool {
			return packageNamePattern.MatchString(fl.Field().String())
		})
	})
	return validate
}

// Validate checks a provider manifest. All problems are reported together
// in a *ValidationError.
func Validate(p *Provider) error {
	if p == nil {
		return &ValidationError{Problems: []string{"manifest is empty"}}
	}
	var problems []string

	err := structValidator().Struct(p)
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		for _, fe := range fieldErrs {
			problems = append(problems, describeFieldError(fe))
		}
	} else if err != nil {
		problems = append(problems, err.Error())
	}

	problems = append(problems, checkVersions(p.Versions)...)
	problems = append(problems, checkIntegrationRefs(p)...)
	problems = append(problems, checkConnectionTypes(p.ConnectionTypes)...)
	problems = append(problems, checkConfig(p.Config)...)

	if len(problems) > 0 {
		return &ValidationError{PackageName: p.PackageName, Problems: problems}
	}
	return nil
}

func describeFieldError(fe validator.FieldError) string {
	// Namespace is Provider.versions[0]; drop the struct name.
	field := fe.Namespace()
	if i := strings.IndexByte(field, '.'); i >= 0 {
		field = field[i+1:]
	}
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "min":
		return fmt.Sprintf("%s needs at least %s entries", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s], got %q", field, fe.Param(), fe.Value())
	case "package_name":
		return fmt.Sprintf("%s %q must be lowercase words separated by dashes", field, fe.Value())
	case "url":
		return fmt.Sprintf("%s %q is not a valid URL", field, fe.Value())
	default:
		return fmt.Sprintf("%s failed %q validation", field, fe.Tag())
	}
}

func checkVersions(versions []string) []string {
	var problems []string
	seen := make(map[string]bool, len(versions))
	for i, v := range versions {
		if v == "" {
			continue
		}
		if !IsReleaseVersion(v) {
			problems = append(problems, fmt.Sprintf("versions[%d] %q is not a release version", i, v))
			continue
		}
		if seen[v] {
			problems = append(problems, fmt.Sprintf("versions[%d] %q is listed twice", i, v))
			continue
		}
		seen[v] = true
		if i > 0 && IsReleaseVersion(versions[i-1]) && CompareVersions(versions[i-1], v) < 0 {
			problems = append(problems, fmt.Sprintf("versions must be newest first: %q listed before %q", versions[i-1], v))
		}
	}
	return problems
}

func checkIntegrationRefs(p *Provider) []string {
	declared := make(map[string]bool, len(p.Integrations))
	for _, i := range p.Integrations {
		declared[i.IntegrationName] = true
	}
	var problems []string
	groups := []struct {
		key    string
		groups []ModuleGroup
	}{
		{"operators", p.Operators},
		{"sensors", p.Sensors},
		{"hooks", p.Hooks},
	}
	for _, g := range groups {
		for i, mg := range g.groups {
			if mg.IntegrationName == "" || declared[mg.IntegrationName] {
				continue
			}
			problems = append(problems, fmt.Sprintf("%s[%d] references undeclared integration %q", g.key, i, mg.IntegrationName))
		}
	}
	return problems
}

func checkConnectionTypes(types []ConnectionType) []string {
	var problems []string
	seen := make(map[string]bool, len(types))
	for i, ct := range types {
		if ct.ConnectionType == "" {
			continue
		}
		if seen[ct.ConnectionType] {
			problems = append(problems, fmt.Sprintf("connection-types[%d] %q is declared twice", i, ct.ConnectionType))
		}
		seen[ct.ConnectionType] = true
	}
	return problems
}

func checkConfig(config map[string]ConfigSection) []string {
	var problems []string
	sections := make([]string, 0, len(config))
	for s := range config {
		sections = append(sections, s)
	}
	sort.Strings(sections)
	for _, section := range sections {
		options := config[section].Options
		names := make([]string, 0, len(options))
		for n := range options {
			names = append(names, n)
		}
		sort.Strings(names)
		for _, name := range names {
			opt := options[name]
			key := fmt.Sprintf("config.%s.options.%s", section, name)
			switch opt.Type {
			case TypeString, TypeInteger, TypeBoolean, TypeFloat:
			case "":
				// reported by the struct validator
				continue
			default:
				problems = append(problems, fmt.Sprintf("%s.type %q is not supported", key, opt.Type))
				continue
			}
			if opt.Default != nil && !defaultMatchesType(*opt.Default, opt.Type) {
				problems = append(problems, fmt.Sprintf("%s.default %q is not a valid %s", key, *opt.Default, opt.Type))
			}
		}
	}
	return problems
}

func defaultMatchesType(value, typ string) bool {
	switch typ {
	case TypeInteger:
		_, err := strconv.ParseInt(value, 10, 64)
		return err == nil
	case TypeFloat:
		_, err := strconv.ParseFloat(value, 64)
		return err == nil
	case TypeBoolean:
		switch strings.ToLower(value) {
		case "true", "false":
			return true
		}
		return false
	}
	return true
}

// IsReleaseVersion reports whether v looks like X.Y.Z with an optional
// aN, bN, rcN or .devN suffix.
func IsReleaseVersion(v string) bool {
	return versionPattern.MatchString(v)
}

// CompareVersions orders two provider versions, returning -1, 0 or +1.
// Pre-releases sort before the release they precede: dev < a < b < rc.
func CompareVersions(a, b string) int {
	return semver.Compare(toSemver(a), toSemver(b))
}

func toSemver(v string) string {
	m := versionPattern.FindStringSubmatch(v)
	if m == nil {
		return "v" + v
	}
	out := fmt.Sprintf("v%s.%s.%s", m[1], m[2], m[3])
	switch {
	case m[4] != "":
		out += "-" + m[4] + "." + m[5]
	case m[6] != "":
		// "0dev" sorts below "a", "b" and "rc" in semver's ASCII ordering
		out += "-0dev." + m[6]
	}
	return out
}
