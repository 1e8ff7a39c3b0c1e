package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/khidmat/core"
	"github.com/trezcool/khidmat/core/i18n"
	"github.com/trezcool/khidmat/core/translation"
)

var errNoFile = errors.New("no file was uploaded")

type toolsApi struct {
	*Server
}

func registerToolsAdminAPI(g *echo.Group, s *Server) {
	api := toolsApi{Server: s}

	g.POST("/uploads", api.upload)
	g.POST("/translate", api.translate)
	g.POST("/translations/reconcile", api.reconcile)
}

type (
	TranslateRequest struct {
		Text    string      `json:"text" validate:"required,notblank,max=5000"`
		Targets []i18n.Lang `json:"targets" validate:"dive,lang"`
	}

	TranslatedText struct {
		Lang     i18n.Lang `json:"lang"`
		Dir      i18n.Dir  `json:"dir"`
		Text     string    `json:"text"`
		Fallback bool      `json:"fallback"`
	}
)

func (api toolsApi) upload(ctx echo.Context) error {
	fh, err := ctx.FormFile("file")
	if err != nil {
		return core.NewValidationError(errNoFile, core.FieldError{Field: "file", Error: errNoFile.Error()})
	}
	f, err := fh.Open()
	if err != nil {
		return errors.Wrap(err, "opening uploaded file")
	}
	defer f.Close()

	up, err := api.deps.Media.Upload(ctx.Request().Context(), ctx.FormValue("folder"), f)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, up)
}

// translate runs the fan-out on an arbitrary text; the source language is never a target.
func (api toolsApi) translate(ctx echo.Context) error {
	var data TranslateRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to TranslateRequest")
	}
	if err := api.deps.Validate.Struct(data); err != nil {
		return err
	}

	source := api.deps.Fanout.Source()
	targets := make([]i18n.Lang, 0, len(data.Targets))
	for _, lang := range data.Targets {
		if lang != source {
			targets = append(targets, lang)
		}
	}
	if len(data.Targets) > 0 && len(targets) == 0 {
		return ctx.JSON(http.StatusOK, []TranslatedText{})
	}

	outcomes := api.deps.Fanout.Run(ctx.Request().Context(), translation.Fields{"text": data.Text}, targets...)
	resp := make([]TranslatedText, 0, len(outcomes))
	for _, o := range outcomes {
		resp = append(resp, TranslatedText{
			Lang:     o.Lang,
			Dir:      o.Lang.Direction(),
			Text:     o.Fields["text"],
			Fallback: len(o.Fallbacks) > 0,
		})
	}
	return ctx.JSON(http.StatusOK, resp)
}

func (api toolsApi) reconcile(ctx echo.Context) error {
	rep, err := api.deps.Reconciler.Run(ctx.Request().Context())
	if err != nil {
		if errors.Is(err, translation.ErrReconcileRunning) {
			return errReconcileRunning
		}
		return errors.Wrap(err, "reconciling translations")
	}
	return ctx.JSON(http.StatusOK, rep)
}
