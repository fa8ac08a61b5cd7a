package server

import (
	"context"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/presbrey/flex/booltmemo"
	"github.com/presbrey/flex/cdns"
	"github.com/presbrey/flex/echoprom"
	"github.com/presbrey/flex/echovalidator"
	"github.com/presbrey/flex/irc"
	"github.com/presbrey/flex/irc/history"
	"github.com/presbrey/flex/irc/transport"
)

const (
	defaultHistoryLimit = 20
	probeTimeout        = 2 * time.Second
)

// App serves the event socket and the JSON endpoints
type App struct {
	server  *Server
	hub     *transport.Hub
	metrics *echoprom.Metrics
	echo    *echo.Echo
	probe   *booltmemo.Memo[string]
}

// NewApp builds the echo application for srv. metrics may be nil.
func NewApp(srv *Server, hub *transport.Hub, metrics *echoprom.Metrics) *App {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = echovalidator.New()

	cdns.UseDefaults(e, cdns.Options{
		Redirect:     srv.config.CDN.Redirect,
		RedirectPort: srv.config.CDN.RedirectPort,
	})

	if metrics != nil {
		e.Use(metrics.Middleware())
	}

	app := &App{
		server:  srv,
		hub:     hub,
		metrics: metrics,
		echo:    e,
	}
	app.probe = booltmemo.New(app.historyHealthy, 10*time.Second, 2*time.Second)
	app.setupRoutes()
	return app
}

// Echo returns the underlying echo instance
func (a *App) Echo() *echo.Echo {
	return a.echo
}

func (a *App) setupRoutes() {
	a.echo.GET("/socket", a.handleSocket)
	a.echo.GET("/healthz", a.handleHealth)

	api := a.echo.Group("/api")
	api.GET("/channels", a.handleChannels)
	api.GET("/channels/:name/topics", a.handleTopics)
	api.GET("/channels/:name/messages", a.handleMessages)
	api.GET("/session", a.handleSession)

	if a.metrics != nil {
		a.echo.GET("/metrics", echo.WrapHandler(a.metrics.Handler()))
	}
}

func (a *App) handleSocket(c echo.Context) error {
	if err := a.hub.ServeWS(c.Response(), c.Request(), c.RealIP()); err != nil {
		// the upgrader already wrote the error response
		a.server.log.Debug().Err(err).Msg("socket upgrade failed")
	}
	return nil
}

// historyHealthy pings stores that support it. The key is unused; there is
// one store per server.
func (a *App) historyHealthy(string) bool {
	p, ok := a.server.History().(history.Pinger)
	if !ok {
		return true
	}
	ctx, cancel := context.WithTimeout(context.Background(), probeTimeout)
	defer cancel()
	if err := p.Ping(ctx); err != nil {
		a.server.log.Warn().Err(err).Msg("history store ping failed")
		return false
	}
	return true
}

func (a *App) handleHealth(c echo.Context) error {
	sessions := a.server.Sessions()
	historyStatus := "ok"
	if !a.probe.Get("history") {
		historyStatus = "unavailable"
	}
	return c.JSON(http.StatusOK, map[string]any{
		"status":   "ok",
		"history":  historyStatus,
		"uptime":   int64(a.server.Uptime().Seconds()),
		"clients":  sessions.Clients.Len(),
		"channels": sessions.Channels.Len(),
		"sockets":  a.hub.Len(),
	})
}

func (a *App) handleChannels(c echo.Context) error {
	channels := a.server.Channels()
	if channels == nil {
		channels = []ChannelInfo{}
	}
	return c.JSON(http.StatusOK, channels)
}

// historyQuery is the input of the history endpoints. Name may omit the
// leading '#'. An absent limit means defaultHistoryLimit; a present one
// must be in range, 0 included.
type historyQuery struct {
	Name  string `param:"name" validate:"required"`
	Limit int    `query:"limit" validate:"min=1,max=200"`
}

func bindHistory(c echo.Context) (channel string, limit int, err error) {
	var q historyQuery
	if !c.QueryParams().Has("limit") {
		q.Limit = defaultHistoryLimit
	}
	if err := c.Bind(&q); err != nil {
		return "", 0, err
	}
	if err := c.Validate(&q); err != nil {
		return "", 0, err
	}

	name, err := url.PathUnescape(q.Name)
	if err != nil {
		return "", 0, echo.NewHTTPError(http.StatusBadRequest, "invalid channel")
	}
	if !irc.IsChannelName(name) {
		name = "#" + name
	}
	if _, err := irc.ValidateChannel(name); err != nil {
		return "", 0, echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	return name, q.Limit, nil
}

func (a *App) handleTopics(c echo.Context) error {
	name, limit, err := bindHistory(c)
	if err != nil {
		return err
	}
	topics, err := a.server.History().Topics(c.Request().Context(), name, limit)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "history unavailable").SetInternal(err)
	}
	if topics == nil {
		return c.JSON(http.StatusOK, []any{})
	}
	return c.JSON(http.StatusOK, topics)
}

func (a *App) handleMessages(c echo.Context) error {
	name, limit, err := bindHistory(c)
	if err != nil {
		return err
	}
	msgs, err := a.server.History().Messages(c.Request().Context(), name, limit)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "history unavailable").SetInternal(err)
	}
	if msgs == nil {
		return c.JSON(http.StatusOK, []any{})
	}
	return c.JSON(http.StatusOK, msgs)
}

// handleSession resolves the bearer token issued in RPL_WELCOME
func (a *App) handleSession(c echo.Context) error {
	auth := c.Request().Header.Get(echo.HeaderAuthorization)
	token, ok := strings.CutPrefix(auth, "Bearer ")
	if !ok || token == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing token")
	}

	sessions := a.server.Sessions()
	id, ok := sessions.Authenticate(token)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
	}
	client, ok := sessions.Snapshot(id)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
	}

	channels := client.ChannelKeys()
	slices.Sort(channels)
	resp := map[string]any{
		"id":        client.ID,
		"nickname":  client.Nickname,
		"username":  client.Username,
		"realname":  client.Realname,
		"host":      client.DisplayHost(),
		"channels":  channels,
		"oper":      client.IsOper(),
		"connected": client.ConnectedAt,
	}
	return c.JSON(http.StatusOK, resp)
}

// Start serves on addr until Shutdown
func (a *App) Start(addr string) error {
	return a.echo.Start(addr)
}

// Shutdown stops accepting requests. Upgraded sockets are owned by the hub.
func (a *App) Shutdown(ctx context.Context) error {
	return a.echo.Shutdown(ctx)
}
