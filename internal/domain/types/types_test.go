package types_test

import (
	"encoding/json"
	"testing"

	"github.com/paulmach/orb"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/skymap/internal/domain/model"
	"github.com/okian/skymap/internal/domain/projection"
	"github.com/okian/skymap/internal/domain/render"
	"github.com/okian/skymap/internal/domain/types"
)

func TestEventRequestCommand(t *testing.T) {
	Convey("Given a wheel event", t, func() {
		e := types.EventRequest{EventID: "e1", Kind: "wheel", X: 10, Y: 20, DeltaY: -3, DeltaMode: 1}
		c := e.Command("s1")

		Convey("Then it becomes a gesture command", func() {
			So(c.ID, ShouldEqual, "e1")
			So(c.SessionID, ShouldEqual, "s1")
			So(c.Kind, ShouldEqual, model.CommandGesture)
			So(c.Gesture, ShouldResemble, model.Gesture{Kind: model.GestureWheel, X: 10, Y: 20, DeltaY: -3, DeltaMode: 1})
		})
	})

	Convey("Given a resize event", t, func() {
		c := types.EventRequest{Kind: types.KindResize, Width: 640, Height: 480}.Command("s1")

		Convey("Then it becomes a resize command", func() {
			So(c.Kind, ShouldEqual, model.CommandResize)
			So(c.Size, ShouldResemble, model.Size{Width: 640, Height: 480})
		})
	})
}

func TestSceneView(t *testing.T) {
	Convey("Given a rendered scene", t, func() {
		o := projection.NewOrthographic()
		o.SetScale(100)
		o.SetTranslate([2]float64{100, 100})
		level := 50.0
		scene := render.NewPathBuilder(o, 0.1).Scene(model.Size{Width: 200, Height: 200}, render.Layers{
			Graticule: render.Graticule(render.DefaultGraticuleStep),
			Fields:    []model.Field{{Geometry: orb.Point{180, 0}}},
			Contours:  []render.Contour{{Geometry: orb.LineString{{0, 0}, {10, 0}}, CredibleLevel: &level}},
			Marker:    orb.Point{0, 0},
		})
		scene.Sequence = 4

		view := types.NewSceneView(scene)

		Convey("Then every path is serialized", func() {
			So(view.Sequence, ShouldEqual, uint64(4))
			So(view.Graticule, ShouldNotBeEmpty)
			So(view.Fields, ShouldResemble, []types.FieldPathView{{Index: 0, D: ""}})
			So(view.Contours[0].D, ShouldStartWith, "M100,100L")
			So(*view.Contours[0].CredibleLevel, ShouldEqual, 50.0)
			So(view.Marker, ShouldEqual, "M100,100m0,4.5a4.5,4.5 0 1,1 0,-9a4.5,4.5 0 1,1 0,9z")
		})

		Convey("Then the JSON uses snake case keys", func() {
			data, err := json.Marshal(view)
			So(err, ShouldBeNil)
			So(string(data), ShouldContainSubstring, `"credible_level":50`)
			So(string(data), ShouldContainSubstring, `"graticule":"M`)
		})
	})
}
