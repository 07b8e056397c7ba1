package service_test

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	. "github.com/smartystreets/goconvey/convey"

	repository "github.com/okian/skymap/internal/adapters/repository"
	service "github.com/okian/skymap/internal/app"
	"github.com/okian/skymap/internal/domain/model"
	"github.com/okian/skymap/internal/domain/skymap"
	"github.com/okian/skymap/internal/domain/types"
	"github.com/okian/skymap/pkg/logger"
)

func init() {
	// Initialize logging for tests
	err := logger.Init()
	if err != nil {
		panic(err)
	}
}

const footprints = `{
  "type": "FeatureCollection",
  "features": [
    {"type": "Feature", "geometry": {"type": "Polygon", "coordinates": [[[-5, -5], [5, -5], [5, 5], [-5, 5], [-5, -5]]]},
     "properties": {"telescope": "ZTF", "field_id": 633, "ra": 0, "dec": 0}},
    {"type": "Feature", "geometry": {"type": "Polygon", "coordinates": [[[40, 10], [50, 10], [50, 20], [40, 20], [40, 10]]]},
     "properties": {"telescope": "ZTF", "field_id": 634}},
    {"type": "Feature", "geometry": {"type": "Polygon", "coordinates": [[[170, 0], [175, 0], [175, 5], [170, 5], [170, 0]]]},
     "properties": {"telescope": "DECam", "field_id": "S-1"}}
  ]
}`

func defaultFields() []model.Field {
	return []model.Field{{
		Geometry: orb.Polygon{{{-5, -5}, {5, -5}, {5, 5}, {-5, 5}, {-5, -5}}},
		Meta:     model.FieldMeta{Telescope: "ZTF", FieldID: "1", RA: 0, Dec: 0},
	}}
}

func localization(lon, lat float64) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	fc.Append(geojson.NewFeature(orb.Point{lon, lat}))
	contour := geojson.NewFeature(orb.Polygon{{
		{lon - 3, lat - 3}, {lon + 3, lat - 3}, {lon + 3, lat + 3}, {lon - 3, lat + 3}, {lon - 3, lat - 3},
	}})
	contour.Properties["credible_level"] = 90.0
	fc.Append(contour)
	return fc
}

func startedService(opts ...service.Option) *service.Service {
	svc := service.New(opts...)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	So(svc.Start(ctx), ShouldBeNil)
	return svc
}

func TestService_Lifecycle(t *testing.T) {
	Convey("Given a new service", t, func() {
		svc := service.New(
			service.WithShardCount(2),
			service.WithQueueSize(64),
			service.WithDedupeSize(128),
		)
		So(svc, ShouldNotBeNil)
		So(svc.Started(), ShouldBeFalse)

		Convey("When it has not been started", func() {
			_, err := svc.CreateSession(context.Background(), types.CreateSessionRequest{Width: 10, Height: 10})

			Convey("Then sessions cannot be created", func() {
				So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
			})
		})

		Convey("When starting it twice", func() {
			ctx, cancel := context.WithCancel(context.Background())
			So(svc.Start(ctx), ShouldBeNil)
			So(svc.Start(ctx), ShouldBeNil)
			// The dispatcher outlives the start context.
			cancel()
			defer svc.Stop()

			Convey("Then it is running and accepts commands", func() {
				So(svc.Started(), ShouldBeTrue)
				sess, err := svc.CreateSession(context.Background(), types.CreateSessionRequest{Width: 100, Height: 100})
				So(err, ShouldBeNil)
				res, err := svc.Do(context.Background(), model.Command{SessionID: sess.ID, Kind: model.CommandRedraw})
				So(err, ShouldBeNil)
				So(res.Sequence, ShouldEqual, 2)
			})
		})

		Convey("When stopping a started service", func() {
			So(svc.Start(context.Background()), ShouldBeNil)
			svc.Stop()
			svc.Stop()

			Convey("Then it is marked as stopped", func() {
				So(svc.Started(), ShouldBeFalse)
				_, err := svc.Session(context.Background(), "any")
				So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
			})
		})
	})
}

func TestService_Sessions(t *testing.T) {
	Convey("Given a service with default fields", t, func() {
		svc := startedService(service.WithDefaultFields(defaultFields()))
		defer svc.Stop()
		ctx := context.Background()

		Convey("When creating a session", func() {
			sess, err := svc.CreateSession(ctx, types.CreateSessionRequest{Width: 400, Height: 300})
			So(err, ShouldBeNil)

			Convey("Then the map is sized to the container and drawn once", func() {
				state := sess.Map.State()
				So(state.Scale, ShouldAlmostEqual, 200, 1e-9)
				So(state.Translate, ShouldResemble, [2]float64{200, 150})
				So(sess.Map.Sequence(), ShouldEqual, 1)
				So(sess.Map.Fields(), ShouldHaveLength, 1)
			})

			Convey("Then it can be fetched and deleted", func() {
				got, err := svc.Session(ctx, sess.ID)
				So(err, ShouldBeNil)
				So(got, ShouldEqual, sess)

				So(svc.DeleteSession(ctx, sess.ID), ShouldBeNil)
				_, err = svc.Session(ctx, sess.ID)
				So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
			})
		})

		Convey("When the request carries its own fields", func() {
			sess, err := svc.CreateSession(ctx, types.CreateSessionRequest{
				Width: 200, Height: 200, Fields: []byte(footprints),
			})

			Convey("Then they replace the defaults", func() {
				So(err, ShouldBeNil)
				So(sess.Map.Fields(), ShouldHaveLength, 3)
				So(sess.Map.Fields()[2].Meta.FieldID, ShouldEqual, model.FieldID("S-1"))
			})
		})

		Convey("When the request fields are not GeoJSON", func() {
			_, err := svc.CreateSession(ctx, types.CreateSessionRequest{Width: 200, Height: 200, Fields: []byte(`[1,2]`)})

			Convey("Then creation fails with a decode error", func() {
				So(errors.Is(err, model.ErrDecode), ShouldBeTrue)
			})
		})
	})

	Convey("Given a service with a default localization", t, func() {
		svc := startedService(service.WithDefaultLocalization(localization(30, 20)))
		defer svc.Stop()

		Convey("Then new sessions start centred on it", func() {
			sess, err := svc.CreateSession(context.Background(), types.CreateSessionRequest{Width: 200, Height: 200})
			So(err, ShouldBeNil)
			rot := sess.Map.State().Rotation
			So(rot.Lambda, ShouldAlmostEqual, -30, 1e-9)
			So(rot.Phi, ShouldAlmostEqual, -20, 1e-9)
			So(sess.Map.Contours(), ShouldHaveLength, 1)
			So(sess.Map.Sequence(), ShouldEqual, 2)
		})
	})
}

func TestService_Do(t *testing.T) {
	Convey("Given a session", t, func() {
		svc := startedService(
			service.WithShardCount(2),
			service.WithMapOptions(skymap.WithZoomExtent(0.5, 4)),
		)
		defer svc.Stop()
		ctx := context.Background()
		sess, err := svc.CreateSession(ctx, types.CreateSessionRequest{Width: 200, Height: 200})
		So(err, ShouldBeNil)

		Convey("When resizing", func() {
			res, err := svc.Do(ctx, model.Command{SessionID: sess.ID, Kind: model.CommandResize, Size: model.Size{Width: 600, Height: 400}})

			Convey("Then the reply carries the new layout", func() {
				So(err, ShouldBeNil)
				So(res.State.Scale, ShouldAlmostEqual, 300, 1e-9)
				So(res.State.Translate, ShouldResemble, [2]float64{300, 200})
				So(res.Sequence, ShouldEqual, 2)
				So(sess.Viewport.Size(), ShouldResemble, model.Size{Width: 600, Height: 400})
			})
		})

		Convey("When pinching past the configured zoom extent", func() {
			res, err := svc.Do(ctx, model.Command{
				SessionID: sess.ID,
				Kind:      model.CommandGesture,
				Gesture:   model.Gesture{Kind: model.GesturePinch, Scale: 10},
			})

			Convey("Then the map options were applied", func() {
				So(err, ShouldBeNil)
				So(res.State.Scale, ShouldAlmostEqual, 400, 1e-9)
			})
		})

		Convey("When applying a localization", func() {
			res, err := svc.Do(ctx, model.Command{SessionID: sess.ID, Kind: model.CommandLocalization, Localization: localization(-60, 10)})

			Convey("Then the map is recentred", func() {
				So(err, ShouldBeNil)
				So(res.State.Rotation.Lambda, ShouldAlmostEqual, 60, 1e-9)
				So(res.State.Rotation.Phi, ShouldAlmostEqual, -10, 1e-9)
			})
		})

		Convey("When a localization is empty", func() {
			before := sess.Map.Sequence()
			_, err := svc.Do(ctx, model.Command{SessionID: sess.ID, Kind: model.CommandLocalization, Localization: geojson.NewFeatureCollection()})

			Convey("Then the map error is returned and nothing is redrawn", func() {
				So(errors.Is(err, skymap.ErrEmptyLocalization), ShouldBeTrue)
				So(sess.Map.Sequence(), ShouldEqual, before)
			})
		})

		Convey("When redrawing", func() {
			res, err := svc.Do(ctx, model.Command{SessionID: sess.ID, Kind: model.CommandRedraw})

			Convey("Then only the sequence advances", func() {
				So(err, ShouldBeNil)
				So(res.Sequence, ShouldEqual, 2)
				So(res.State, ShouldResemble, sess.Map.State())
			})
		})

		Convey("When the command kind is unknown", func() {
			_, err := svc.Do(ctx, model.Command{SessionID: sess.ID, Kind: "spin"})

			Convey("Then it is rejected", func() {
				So(errors.Is(err, service.ErrUnknownCommand), ShouldBeTrue)
			})
		})

		Convey("When the session does not exist", func() {
			_, err := svc.Do(ctx, model.Command{SessionID: "missing", Kind: model.CommandRedraw})

			Convey("Then it is not found", func() {
				So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
			})
		})

		Convey("When the caller's context is already cancelled", func() {
			cctx, cancel := context.WithCancel(ctx)
			cancel()
			_, err := svc.Do(cctx, model.Command{SessionID: sess.ID, Kind: model.CommandRedraw})

			Convey("Then the cancellation is reported", func() {
				So(errors.Is(err, context.Canceled), ShouldBeTrue)
			})
		})
	})
}

func TestService_DoTimeout(t *testing.T) {
	Convey("Given a service that waits only a nanosecond for replies", t, func() {
		svc := startedService(service.WithShardCount(1), service.WithCommandTimeout(time.Nanosecond))
		defer svc.Stop()
		ctx := context.Background()
		sess, err := svc.CreateSession(ctx, types.CreateSessionRequest{Width: 200, Height: 200})
		So(err, ShouldBeNil)

		Convey("When a queued command is not awaited", func() {
			_, err := svc.Do(ctx, model.Command{SessionID: sess.ID, Kind: model.CommandRedraw})

			Convey("Then the error says it is still in flight", func() {
				if err != nil {
					So(errors.Is(err, service.ErrInFlight), ShouldBeTrue)
					So(errors.Is(err, service.ErrTimeout), ShouldBeTrue)
				}
			})
		})

		Convey("When the command is never queued", func() {
			_, err := svc.Do(ctx, model.Command{SessionID: "missing", Kind: model.CommandRedraw})

			Convey("Then it is not in flight", func() {
				So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
				So(errors.Is(err, service.ErrInFlight), ShouldBeFalse)
			})
		})
	})
}

func TestService_Dedupe(t *testing.T) {
	Convey("Given a started service", t, func() {
		svc := startedService()
		defer svc.Stop()
		ctx := context.Background()

		Convey("Then a command id is recorded once", func() {
			So(svc.SeenAndRecord(ctx, "s1:e1"), ShouldBeFalse)
			So(svc.SeenAndRecord(ctx, "s1:e1"), ShouldBeTrue)
			So(svc.Size(), ShouldEqual, 1)
		})

		Convey("Then an unrecorded id can be retried", func() {
			So(svc.SeenAndRecord(ctx, "s1:e2"), ShouldBeFalse)
			svc.Unrecord(ctx, "s1:e2")
			So(svc.SeenAndRecord(ctx, "s1:e2"), ShouldBeFalse)
		})
	})

	Convey("Given a service that was never started", t, func() {
		svc := service.New()

		Convey("Then nothing is ever a duplicate", func() {
			So(svc.SeenAndRecord(context.Background(), "e1"), ShouldBeFalse)
			So(svc.Size(), ShouldEqual, 0)
		})
	})
}

func TestService_RenderAndStats(t *testing.T) {
	Convey("Given two sessions", t, func() {
		svc := startedService(service.WithDefaultFields(defaultFields()), service.WithRenderConcurrency(1))
		defer svc.Stop()
		ctx := context.Background()

		a, err := svc.CreateSession(ctx, types.CreateSessionRequest{Width: 64, Height: 64})
		So(err, ShouldBeNil)
		_, err = svc.CreateSession(ctx, types.CreateSessionRequest{Width: 32, Height: 32})
		So(err, ShouldBeNil)
		_, err = svc.Do(ctx, model.Command{SessionID: a.ID, Kind: model.CommandLocalization, Localization: localization(0, 0)})
		So(err, ShouldBeNil)

		Convey("When rendering a PNG", func() {
			var buf bytes.Buffer
			err := svc.RenderPNG(ctx, a.ID, &buf)

			Convey("Then a PNG stream is written", func() {
				So(err, ShouldBeNil)
				So(bytes.HasPrefix(buf.Bytes(), []byte("\x89PNG\r\n\x1a\n")), ShouldBeTrue)
			})
		})

		Convey("When the session exceeds the PNG pixel budget", func() {
			small := startedService(service.WithMaxPNGPixels(64 * 63))
			defer small.Stop()
			big, err := small.CreateSession(ctx, types.CreateSessionRequest{Width: 64, Height: 63.5})
			So(err, ShouldBeNil)
			fits, err := small.CreateSession(ctx, types.CreateSessionRequest{Width: 64, Height: 63})
			So(err, ShouldBeNil)

			var buf bytes.Buffer
			err = small.RenderPNG(ctx, big.ID, &buf)

			Convey("Then nothing is rasterized", func() {
				So(errors.Is(err, service.ErrImageTooLarge), ShouldBeTrue)
				So(buf.Len(), ShouldEqual, 0)
			})

			Convey("Then a session within the budget still renders", func() {
				So(small.RenderPNG(ctx, fits.ID, &bytes.Buffer{}), ShouldBeNil)
			})
		})

		Convey("When rendering an unknown session", func() {
			err := svc.RenderPNG(ctx, "missing", &bytes.Buffer{})

			Convey("Then it is not found", func() {
				So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
			})
		})

		Convey("When collecting stats", func() {
			stats := svc.Stats(ctx)

			Convey("Then sessions and their layers are summed", func() {
				So(stats.Sessions, ShouldEqual, 2)
				So(stats.Fields, ShouldEqual, 2)
				So(stats.Contours, ShouldEqual, 1)
				So(stats.Redraws, ShouldEqual, 3)
				So(stats.QueueBacklog, ShouldEqual, 0)
				So(stats.UptimeSeconds, ShouldBeGreaterThanOrEqualTo, 0)
			})
		})
	})
}
