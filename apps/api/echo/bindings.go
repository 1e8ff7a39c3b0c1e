package echoapi

import (
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/khidmat/core"
	"github.com/trezcool/khidmat/core/i18n"
)

var orderingParam = "ordering"

type Ordering struct {
	Orderings []core.DBOrdering
}

// Bind parses `?ordering=position,-created_at`, keeping only the `allowed` fields.
func (ord *Ordering) Bind(ctx echo.Context, allowed ...string) {
	val := ctx.QueryParam(orderingParam)
	if val == "" {
		return
	}

	for _, field := range strings.Split(val, ",") {
		field = strings.TrimSpace(field)
		descending := strings.HasPrefix(field, "-")
		if descending {
			field = field[1:] // drop "-"
		}
		if field == "" {
			continue
		}
		ord.Orderings = append(ord.Orderings, core.DBOrdering{Field: field, Ascending: !descending})
	}
	ord.Orderings = core.AllowedOrderings(ord.Orderings, allowed...)
}

// TranslateFlags are the query flags of the admin writes on translatable content.
type TranslateFlags struct {
	AutoTranslate bool
	Force         bool
}

// Bind reads `?auto_translate=false&force=true`; auto translation is on unless disabled.
func (f *TranslateFlags) Bind(ctx echo.Context) {
	f.AutoTranslate = queryBool(ctx, "auto_translate", true)
	f.Force = queryBool(ctx, "force", false)
}

func queryBool(ctx echo.Context, name string, def bool) bool {
	v := ctx.QueryParam(name)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

// pathLang parses the `:lang` path param of the admin translation routes.
func pathLang(ctx echo.Context) (i18n.Lang, error) {
	lang, err := i18n.Parse(ctx.Param(i18n.Param))
	if err != nil {
		return "", core.NewValidationError(err, core.FieldError{Field: i18n.Param, Error: err.Error()})
	}
	return lang, nil
}

type (
	SuccessResponse struct {
		Success string `json:"success"`
	}

	DestroyMultipleRequest struct {
		IDs []string `query:"id"`
	}

	// WriteResponse is returned by the admin writes on translatable content.
	WriteResponse struct {
		Data   interface{} `json:"data"`
		Report interface{} `json:"translation_report,omitempty"`
	}

	// LocalizedResponse wraps the public reads with the language they are served in.
	LocalizedResponse struct {
		Lang i18n.Lang   `json:"lang"`
		Dir  i18n.Dir    `json:"dir"`
		Data interface{} `json:"data"`
	}
)
