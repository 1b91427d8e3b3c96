package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/pkg/group"
	"gorm.io/gorm"

	"github.com/purifetchi/toki/activitypub"
	"github.com/purifetchi/toki/internal/httpx"
	"github.com/purifetchi/toki/wellknown"
	"github.com/purifetchi/toki/workers"
)

type ServeCmd struct {
	Addr    string `help:"address to listen" default:"127.0.0.1:9999"`
	LogHTTP bool   `help:"log HTTP requests"`
}

func (s *ServeCmd) Run(ctx *Context) error {
	db, err := gorm.Open(ctx.Dialector, &ctx.Config)
	if err != nil {
		return err
	}
	if err := configureDB(db); err != nil {
		return err
	}

	queue := &activitypub.GormQueue{DB: db}
	envFn := func(r *http.Request) *activitypub.Env {
		return &activitypub.Env{
			DB:    db.WithContext(r.Context()),
			Queue: queue,
		}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	if s.LogHTTP {
		r.Use(middleware.Logger)
	}
	r.Use(middleware.Recoverer)

	r.Post("/inbox", httpx.HandlerFunc(envFn, activitypub.Inbox))
	r.Get("/actor", httpx.HandlerFunc(envFn, activitypub.InstanceActor))

	r.Route("/users/{name}", func(r chi.Router) {
		r.Get("/", httpx.HandlerFunc(envFn, activitypub.UsersShow))
		r.Post("/inbox", httpx.HandlerFunc(envFn, activitypub.UserInbox))
		r.Get("/outbox", httpx.HandlerFunc(envFn, activitypub.Outbox))
		r.Get("/followers", httpx.HandlerFunc(envFn, activitypub.Followers))
		r.Get("/following", httpx.HandlerFunc(envFn, activitypub.Following))
	})

	r.Route("/.well-known", func(r chi.Router) {
		r.Get("/webfinger", httpx.HandlerFunc(envFn, wellknown.WebfingerShow))
		r.Get("/host-meta", wellknown.HostMetaIndex)
		r.Get("/nodeinfo", httpx.HandlerFunc(envFn, wellknown.NodeInfoIndex))
	})
	r.Get("/nodeinfo/{version}", httpx.HandlerFunc(envFn, wellknown.NodeInfoShow))

	r.Get("/robots.txt", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		// no robots, especially not you Bingbot!
		io.WriteString(w, "User-agent: *\nDisallow: /")
	})

	if ctx.Debug {
		walkFunc := func(method string, route string, handler http.Handler, middlewares ...func(http.Handler) http.Handler) error {
			route = strings.Replace(route, "/*/", "/", -1)
			fmt.Printf("%s %s\n", method, route)
			return nil
		}
		if err := chi.Walk(r, walkFunc); err != nil {
			fmt.Printf("Logging err: %s\n", err.Error())
		}
	}

	signalCtx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	g := group.New(signalCtx)
	g.Add(workers.NewDeliveryProcessor(db))
	g.Add(workers.NewInboxProcessor(db, queue))
	g.Add(func(ctx context.Context) error {
		svr := &http.Server{
			Addr:         s.Addr,
			Handler:      r,
			WriteTimeout: 15 * time.Second,
			ReadTimeout:  15 * time.Second,
		}
		go func() {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			svr.Shutdown(shutdownCtx)
		}()
		err := svr.ListenAndServe()
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	})
	return g.Wait()
}
