package poi

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/wegman-software/poimatch-go/internal/config"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// Validate checks the fields the engine cannot work without: a source code
// and coordinates that are finite and inside bbox (nil bbox accepts all)
func Validate(r *Record, bbox *config.BBox) error {
	if err := validatorInstance().Struct(r); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s(%s)", fe.Field(), fe.Tag()))
			}
			return fmt.Errorf("invalid record %q: %s", r.Code, strings.Join(fields, ", "))
		}
		return fmt.Errorf("invalid record %q: %w", r.Code, err)
	}
	if !bbox.Contains(r.Lat, r.Lon) {
		return fmt.Errorf("record %q at %s is outside bbox %s", r.Code, r.Geom(), bbox)
	}
	return nil
}
