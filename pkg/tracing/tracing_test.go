package tracing

import (
	"bytes"
	"context"
	"errors"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/skymap/pkg/logger"
)

func init() {
	_ = logger.Init()
}

func TestInit(t *testing.T) {
	Convey("Given tracing configuration", t, func() {
		ctx := context.Background()

		Convey("When tracing is disabled", func() {
			shutdown, err := Init(ctx, Config{}, logger.Get())
			So(err, ShouldBeNil)
			So(shutdown(ctx), ShouldBeNil)

			Convey("Then spans are not recorded", func() {
				_, span := Tracer("test").Start(ctx, "noop")
				So(span.IsRecording(), ShouldBeFalse)
				span.End()
			})
		})

		Convey("When the sample ratio is out of range", func() {
			_, err := Init(ctx, Config{Enabled: true, SampleRatio: 2}, logger.Get())
			So(errors.Is(err, ErrSampleRatio), ShouldBeTrue)
		})

		Convey("When tracing is enabled with a writer", func() {
			var buf bytes.Buffer
			shutdown, err := Init(ctx, Config{Enabled: true, SampleRatio: 1, Writer: &buf}, logger.Get())
			So(err, ShouldBeNil)

			_, span := Tracer("test").Start(ctx, "skymap.command")
			So(span.IsRecording(), ShouldBeTrue)
			span.End()
			Shutdown(ctx, shutdown, logger.Get())

			Convey("Then the span is exported on shutdown", func() {
				So(buf.String(), ShouldContainSubstring, "skymap.command")
			})

			_, _ = Init(ctx, Config{}, nil)
		})
	})
}
