package validators

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
)

const maxIdentifierLen = 64

// PathIdentifier reads and validates a chi URL parameter holding an opaque
// remote identifier such as a product ID.
func PathIdentifier(r *http.Request, name string) (string, error) {
	value := SanitizeString(chi.URLParam(r, name), 0)
	if err := validate.Var(value, "required,printascii,max="+strconv.Itoa(maxIdentifierLen)); err != nil {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "invalid path parameter").
			WithDetails(map[string]string{name: "must be a non-empty identifier of at most 64 characters"})
	}
	return value, nil
}
