package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/skymap/internal/adapters/http/api"
	"github.com/okian/skymap/internal/adapters/mq/queue"
	service "github.com/okian/skymap/internal/app"
	"github.com/okian/skymap/internal/domain/model"
	"github.com/okian/skymap/internal/domain/types"
	"github.com/okian/skymap/pkg/logger"
)

func init() {
	_ = logger.Init()
}

const footprints = `{
  "type": "FeatureCollection",
  "features": [
    {"type": "Feature", "geometry": {"type": "Polygon", "coordinates": [[[-5, -5], [5, -5], [5, 5], [-5, 5], [-5, -5]]]},
     "properties": {"telescope": "ZTF", "field_id": 633, "ra": 0, "dec": 0, "depth": {"g": 20.5}}}
  ]
}`

const localization = `{
  "type": "FeatureCollection",
  "features": [
    {"type": "Feature", "geometry": {"type": "Point", "coordinates": [30, 20]}, "properties": {}},
    {"type": "Feature", "geometry": {"type": "Polygon", "coordinates": [[[27, 17], [33, 17], [33, 23], [27, 23], [27, 17]]]},
     "properties": {"credible_level": 90}}
  ]
}`

// backpressureDeps rejects every command as if the shard queue were full.
type backpressureDeps struct {
	*service.Service
}

func (backpressureDeps) Do(context.Context, model.Command) (model.Result, error) {
	return model.Result{}, queue.ErrFull
}

func newMux(deps api.Dependencies, stats api.StatsProvider) *http.ServeMux {
	mux := http.NewServeMux()
	api.NewServer(deps, stats).Register(context.Background(), mux)
	return mux
}

func serve(mux *http.ServeMux, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func createSession(mux *http.ServeMux) types.CreateSessionResponse {
	body := `{"width": 400, "height": 400, "fields": ` + footprints + `}`
	w := serve(mux, http.MethodPost, "/sessions", body)
	So(w.Code, ShouldEqual, http.StatusCreated)
	var created types.CreateSessionResponse
	So(json.Unmarshal(w.Body.Bytes(), &created), ShouldBeNil)
	return created
}

func errorCode(w *httptest.ResponseRecorder) string {
	var e struct {
		Code string `json:"code"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &e)
	return e.Code
}

func TestServer_Sessions(t *testing.T) {
	Convey("Given an API server backed by a running service", t, func() {
		svc := service.New(service.WithShardCount(2), service.WithCommandTimeout(2*time.Second))
		So(svc.Start(context.Background()), ShouldBeNil)
		defer svc.Stop()
		mux := newMux(svc, svc)

		Convey("When creating a session", func() {
			created := createSession(mux)

			Convey("Then the initial scene is returned", func() {
				So(created.ID, ShouldNotBeEmpty)
				So(created.State.Scale, ShouldAlmostEqual, 200, 1e-9)
				So(created.Scene.Sequence, ShouldEqual, 1)
				So(created.Scene.Graticule, ShouldStartWith, "M")
				So(created.Scene.Fields, ShouldHaveLength, 1)
				So(created.Scene.Fields[0].D, ShouldNotBeEmpty)
			})

			Convey("Then it can be inspected", func() {
				w := serve(mux, http.MethodGet, "/sessions/"+created.ID, "")
				So(w.Code, ShouldEqual, http.StatusOK)
				var view types.SessionView
				So(json.Unmarshal(w.Body.Bytes(), &view), ShouldBeNil)
				So(view.FieldCount, ShouldEqual, 1)
				So(view.ContourCount, ShouldEqual, 0)
				So(view.Size, ShouldResemble, model.Size{Width: 400, Height: 400})
			})

			Convey("Then it can be deleted once", func() {
				So(serve(mux, http.MethodDelete, "/sessions/"+created.ID, "").Code, ShouldEqual, http.StatusNoContent)
				w := serve(mux, http.MethodDelete, "/sessions/"+created.ID, "")
				So(w.Code, ShouldEqual, http.StatusNotFound)
				So(errorCode(w), ShouldEqual, "not_found")
			})
		})

		Convey("When the create body is invalid", func() {
			Convey("Then malformed JSON is a bad request", func() {
				So(serve(mux, http.MethodPost, "/sessions", `{`).Code, ShouldEqual, http.StatusBadRequest)
			})

			Convey("Then a negative size fails validation", func() {
				w := serve(mux, http.MethodPost, "/sessions", `{"width": -1, "height": 10}`)
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(errorCode(w), ShouldEqual, "bad_request")
			})

			Convey("Then undecodable fields are a bad request", func() {
				w := serve(mux, http.MethodPost, "/sessions", `{"width": 10, "height": 10, "fields": {"type": "Point"}}`)
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When a session is unknown", func() {
			Convey("Then every session route answers not found", func() {
				for _, path := range []string{"/sessions/nope", "/sessions/nope/scene", "/sessions/nope/scene.svg", "/sessions/nope/scene.png"} {
					So(serve(mux, http.MethodGet, path, "").Code, ShouldEqual, http.StatusNotFound)
				}
				So(serve(mux, http.MethodPost, "/sessions/nope/redraw", "").Code, ShouldEqual, http.StatusNotFound)
			})
		})

		Convey("When reading health and stats", func() {
			createSession(mux)
			health := serve(mux, http.MethodGet, "/healthz", "")
			stats := serve(mux, http.MethodGet, "/stats", "")

			Convey("Then metrics and counters are exposed", func() {
				So(health.Code, ShouldEqual, http.StatusOK)
				So(health.Body.String(), ShouldContainSubstring, "skymap_")
				So(stats.Code, ShouldEqual, http.StatusOK)
				var s types.Stats
				So(json.Unmarshal(stats.Body.Bytes(), &s), ShouldBeNil)
				So(s.Sessions, ShouldEqual, 1)
				So(s.Fields, ShouldEqual, 1)
			})
		})
	})
}

func TestServer_Events(t *testing.T) {
	Convey("Given a session", t, func() {
		svc := service.New(service.WithShardCount(2))
		So(svc.Start(context.Background()), ShouldBeNil)
		defer svc.Stop()
		mux := newMux(svc, svc)
		id := createSession(mux).ID
		events := "/sessions/" + id + "/events"

		Convey("When a wheel event is posted", func() {
			w := serve(mux, http.MethodPost, events, `{"event_id": "e1", "kind": "wheel", "delta_y": -500}`)
			var res types.EventResponse
			So(json.Unmarshal(w.Body.Bytes(), &res), ShouldBeNil)

			Convey("Then it is applied and redrawn", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(res.Status, ShouldEqual, "applied")
				So(res.Duplicate, ShouldBeFalse)
				So(res.State.Scale, ShouldAlmostEqual, 400, 1e-9)
				So(res.Sequence, ShouldEqual, 2)
			})

			Convey("Then posting it again is acknowledged without reapplying", func() {
				again := serve(mux, http.MethodPost, events, `{"event_id": "e1", "kind": "wheel", "delta_y": -500}`)
				var dup types.EventResponse
				So(json.Unmarshal(again.Body.Bytes(), &dup), ShouldBeNil)
				So(again.Code, ShouldEqual, http.StatusOK)
				So(dup.Duplicate, ShouldBeTrue)
				So(dup.State.Scale, ShouldAlmostEqual, 400, 1e-9)
				So(dup.Sequence, ShouldEqual, 2)
			})
		})

		Convey("When a resize event is posted", func() {
			w := serve(mux, http.MethodPost, events, `{"kind": "resize", "width": 800, "height": 600}`)
			var res types.EventResponse
			So(json.Unmarshal(w.Body.Bytes(), &res), ShouldBeNil)

			Convey("Then the projection follows the container", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(res.State.Scale, ShouldAlmostEqual, 400, 1e-9)
				So(res.State.Translate, ShouldResemble, [2]float64{400, 300})
			})
		})

		Convey("When a drag is posted", func() {
			serve(mux, http.MethodPost, events, `{"kind": "drag_start", "x": 200, "y": 200}`)
			w := serve(mux, http.MethodPost, events, `{"kind": "drag", "x": 250, "y": 200}`)
			var res types.EventResponse
			So(json.Unmarshal(w.Body.Bytes(), &res), ShouldBeNil)

			Convey("Then the sphere turns", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(res.State.Rotation.Lambda, ShouldBeGreaterThan, 0)
			})
		})

		Convey("When an event is invalid", func() {
			Convey("Then an unknown kind is rejected", func() {
				w := serve(mux, http.MethodPost, events, `{"kind": "spin"}`)
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})

			Convey("Then a pinch needs a scale", func() {
				So(serve(mux, http.MethodPost, events, `{"kind": "pinch"}`).Code, ShouldEqual, http.StatusBadRequest)
			})

			Convey("Then a bad delta mode is rejected", func() {
				So(serve(mux, http.MethodPost, events, `{"kind": "wheel", "delta_mode": 7}`).Code, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When the dispatcher is saturated", func() {
			mux := newMux(backpressureDeps{svc}, svc)
			w := serve(mux, http.MethodPost, events, `{"event_id": "busy", "kind": "wheel", "delta_y": 1}`)

			Convey("Then the client is told to back off and may retry", func() {
				So(w.Code, ShouldEqual, http.StatusTooManyRequests)
				So(errorCode(w), ShouldEqual, "backpressure")
				So(svc.SeenAndRecord(context.Background(), id+":busy"), ShouldBeFalse)
			})
		})
	})
}

func TestServer_EventsAfterTimeout(t *testing.T) {
	Convey("Given a service that stops waiting for commands almost at once", t, func() {
		ctx := context.Background()
		svc := service.New(service.WithShardCount(1), service.WithCommandTimeout(time.Nanosecond))
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()
		mux := newMux(svc, svc)
		id := createSession(mux).ID
		events := "/sessions/" + id + "/events"
		const pinch = `{"event_id": "pinch-1", "kind": "pinch", "scale": 2}`

		Convey("When the same event is posted twice", func() {
			first := serve(mux, http.MethodPost, events, pinch)
			So(first.Code, ShouldBeIn, http.StatusOK, http.StatusGatewayTimeout)
			again := serve(mux, http.MethodPost, events, pinch)

			Convey("Then the retry is a duplicate", func() {
				var dup types.EventResponse
				So(json.Unmarshal(again.Body.Bytes(), &dup), ShouldBeNil)
				So(again.Code, ShouldEqual, http.StatusOK)
				So(dup.Duplicate, ShouldBeTrue)
			})

			Convey("Then the pinch is applied exactly once", func() {
				sess, err := svc.Session(ctx, id)
				So(err, ShouldBeNil)
				deadline := time.Now().Add(2 * time.Second)
				for sess.Map.Sequence() < 2 && time.Now().Before(deadline) {
					time.Sleep(time.Millisecond)
				}
				time.Sleep(20 * time.Millisecond)
				So(sess.Map.Sequence(), ShouldEqual, 2)
				So(sess.Map.State().Scale, ShouldAlmostEqual, 400, 1e-9)
			})
		})
	})
}

func TestServer_SceneAndLocalization(t *testing.T) {
	Convey("Given a session", t, func() {
		svc := service.New()
		So(svc.Start(context.Background()), ShouldBeNil)
		defer svc.Stop()
		mux := newMux(svc, svc)
		id := createSession(mux).ID
		base := "/sessions/" + id

		Convey("When a localization is put", func() {
			w := serve(mux, http.MethodPut, base+"/localization", localization)
			var res types.CommandResponse
			So(json.Unmarshal(w.Body.Bytes(), &res), ShouldBeNil)

			Convey("Then the map is recentred on it", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(res.State.Rotation.Lambda, ShouldAlmostEqual, -30, 1e-9)
				So(res.State.Rotation.Phi, ShouldAlmostEqual, -20, 1e-9)
			})

			Convey("Then the scene carries the contour and marker", func() {
				scene := serve(mux, http.MethodGet, base+"/scene", "")
				var view types.SceneView
				So(json.Unmarshal(scene.Body.Bytes(), &view), ShouldBeNil)
				So(view.Contours, ShouldHaveLength, 1)
				So(*view.Contours[0].CredibleLevel, ShouldEqual, 90)
				So(view.Marker, ShouldNotBeEmpty)
			})
		})

		Convey("When the localization is empty", func() {
			w := serve(mux, http.MethodPut, base+"/localization", `{"type": "FeatureCollection", "features": []}`)

			Convey("Then it is unprocessable", func() {
				So(w.Code, ShouldEqual, http.StatusUnprocessableEntity)
				So(errorCode(w), ShouldEqual, "invalid_localization")
			})
		})

		Convey("When the localization centre is not a point", func() {
			body := `{"type": "FeatureCollection", "features": [{"type": "Feature", "geometry": {"type": "LineString", "coordinates": [[0, 0], [1, 1]]}, "properties": {}}]}`
			w := serve(mux, http.MethodPut, base+"/localization", body)

			Convey("Then it is unprocessable", func() {
				So(w.Code, ShouldEqual, http.StatusUnprocessableEntity)
			})
		})

		Convey("When the localization is not JSON", func() {
			So(serve(mux, http.MethodPut, base+"/localization", `nope`).Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When rendering the scene", func() {
			svg := serve(mux, http.MethodGet, base+"/scene.svg", "")
			png := serve(mux, http.MethodGet, base+"/scene.png", "")

			Convey("Then SVG and PNG documents are served", func() {
				So(svg.Code, ShouldEqual, http.StatusOK)
				So(svg.Header().Get("Content-Type"), ShouldEqual, "image/svg+xml")
				So(svg.Body.String(), ShouldStartWith, "<svg")
				So(png.Code, ShouldEqual, http.StatusOK)
				So(png.Header().Get("Content-Type"), ShouldEqual, "image/png")
				So(bytes.HasPrefix(png.Body.Bytes(), []byte("\x89PNG")), ShouldBeTrue)
			})
		})

		Convey("When the session is larger than the PNG budget", func() {
			small := service.New(service.WithMaxPNGPixels(100))
			So(small.Start(context.Background()), ShouldBeNil)
			defer small.Stop()
			smallMux := newMux(small, small)
			id := createSession(smallMux).ID
			w := serve(smallMux, http.MethodGet, "/sessions/"+id+"/scene.png", "")

			Convey("Then it is refused before rasterizing", func() {
				So(w.Code, ShouldEqual, http.StatusRequestEntityTooLarge)
				So(errorCode(w), ShouldEqual, "too_large")
			})
		})

		Convey("When redrawing", func() {
			w := serve(mux, http.MethodPost, base+"/redraw", "")
			var res types.CommandResponse
			So(json.Unmarshal(w.Body.Bytes(), &res), ShouldBeNil)

			Convey("Then the sequence advances", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(res.Sequence, ShouldEqual, 2)
			})
		})
	})
}

func TestServer_Tooltips(t *testing.T) {
	Convey("Given a session with one field at the view centre", t, func() {
		svc := service.New()
		So(svc.Start(context.Background()), ShouldBeNil)
		defer svc.Stop()
		mux := newMux(svc, svc)
		base := "/sessions/" + createSession(mux).ID

		Convey("Then hovering the field returns its tooltip", func() {
			w := serve(mux, http.MethodGet, base+"/tooltip?x=200&y=200", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Header().Get("Content-Type"), ShouldStartWith, "text/html")
			So(w.Body.String(), ShouldContainSubstring, "field-tooltip")
			So(w.Body.String(), ShouldContainSubstring, "633")
		})

		Convey("Then hovering empty sky returns no content", func() {
			So(serve(mux, http.MethodGet, base+"/tooltip?x=2&y=2", "").Code, ShouldEqual, http.StatusNoContent)
		})

		Convey("Then hover coordinates must be numbers", func() {
			So(serve(mux, http.MethodGet, base+"/tooltip?x=a&y=2", "").Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("Then a field tooltip is served by index", func() {
			w := serve(mux, http.MethodGet, base+"/fields/0/tooltip", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, "ZTF")
		})

		Convey("Then an out of range index is not found", func() {
			So(serve(mux, http.MethodGet, base+"/fields/3/tooltip", "").Code, ShouldEqual, http.StatusNotFound)
			So(serve(mux, http.MethodGet, base+"/fields/x/tooltip", "").Code, ShouldEqual, http.StatusBadRequest)
		})
	})
}
