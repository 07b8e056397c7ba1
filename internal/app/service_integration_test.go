package service_test

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	repository "github.com/okian/skymap/internal/adapters/repository"
	service "github.com/okian/skymap/internal/app"
	"github.com/okian/skymap/internal/domain/model"
	"github.com/okian/skymap/internal/domain/types"
)

func TestServiceIntegration(t *testing.T) {
	Convey("Given a service with several sessions", t, func() {
		svc := startedService(
			service.WithShardCount(3),
			service.WithQueueSize(1024),
			service.WithDefaultFields(defaultFields()),
		)
		defer svc.Stop()
		ctx := context.Background()

		const sessions = 6
		ids := make([]string, sessions)
		for i := range ids {
			sess, err := svc.CreateSession(ctx, types.CreateSessionRequest{Width: 200, Height: 200})
			So(err, ShouldBeNil)
			ids[i] = sess.ID
		}

		Convey("When each session is dragged by its own client concurrently", func() {
			const steps = 25
			var wg sync.WaitGroup
			errs := make(chan error, sessions*(steps+2))
			for _, id := range ids {
				wg.Add(1)
				go func(id string) {
					defer wg.Done()
					gesture := func(g model.Gesture) {
						_, err := svc.Do(ctx, model.Command{SessionID: id, Kind: model.CommandGesture, Gesture: g})
						if err != nil {
							errs <- err
						}
					}
					gesture(model.Gesture{Kind: model.GestureDragStart, X: 100, Y: 100})
					for i := 1; i <= steps; i++ {
						gesture(model.Gesture{Kind: model.GestureDrag, X: 100 + float64(i), Y: 100})
					}
					gesture(model.Gesture{Kind: model.GestureDragEnd, X: 100 + steps, Y: 100})
				}(id)
			}
			wg.Wait()
			close(errs)

			Convey("Then every command succeeded", func() {
				for err := range errs {
					So(err, ShouldBeNil)
				}
			})

			Convey("Then every session ended in the same place", func() {
				first, err := svc.Session(ctx, ids[0])
				So(err, ShouldBeNil)
				want := first.Map.State().Rotation
				for _, id := range ids {
					sess, err := svc.Session(ctx, id)
					So(err, ShouldBeNil)
					got := sess.Map.State().Rotation
					So(got.Lambda, ShouldAlmostEqual, want.Lambda, 1e-9)
					So(got.Phi, ShouldAlmostEqual, want.Phi, 1e-9)
					// attach and each drag redraw
					So(sess.Map.Sequence(), ShouldEqual, steps+1)
				}
				So(want.Lambda, ShouldBeGreaterThan, 0)
			})
		})

		Convey("When one session receives wheel events from many goroutines", func() {
			const events = 40
			id := ids[0]
			var wg sync.WaitGroup
			for i := 0; i < events; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					_, _ = svc.Do(ctx, model.Command{
						SessionID: id,
						Kind:      model.CommandGesture,
						Gesture:   model.Gesture{Kind: model.GestureWheel, DeltaY: -10},
					})
				}()
			}
			wg.Wait()

			Convey("Then each event was applied exactly once", func() {
				sess, err := svc.Session(ctx, id)
				So(err, ShouldBeNil)
				want := 100 * math.Pow(2, 0.02*events)
				So(sess.Map.State().Scale, ShouldAlmostEqual, want, 1e-6)
				So(sess.Map.Sequence(), ShouldEqual, events+1)
			})
		})

		Convey("When stats are collected after activity", func() {
			for _, id := range ids {
				_, err := svc.Do(ctx, model.Command{SessionID: id, Kind: model.CommandRedraw})
				So(err, ShouldBeNil)
			}
			stats := svc.Stats(ctx)

			Convey("Then they reflect every session", func() {
				So(stats.Sessions, ShouldEqual, sessions)
				So(stats.Fields, ShouldEqual, sessions)
				So(stats.Redraws, ShouldEqual, 2*sessions)
				So(stats.QueueSizes, ShouldHaveLength, 3)
			})
		})
	})

	Convey("Given a service that keeps only two sessions", t, func() {
		svc := startedService(service.WithMaxSessions(2))
		defer svc.Stop()
		ctx := context.Background()

		var ids []string
		for i := 0; i < 3; i++ {
			sess, err := svc.CreateSession(ctx, types.CreateSessionRequest{Width: 10, Height: 10})
			So(err, ShouldBeNil)
			ids = append(ids, sess.ID)
		}

		Convey("Then the oldest session is evicted", func() {
			_, err := svc.Do(ctx, model.Command{SessionID: ids[0], Kind: model.CommandRedraw})
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
			So(svc.Stats(ctx).Sessions, ShouldEqual, 2)
		})
	})

	Convey("Given a service whose sessions expire quickly", t, func() {
		svc := startedService(service.WithSessionTTL(50 * time.Millisecond))
		defer svc.Stop()
		ctx := context.Background()

		sess, err := svc.CreateSession(ctx, types.CreateSessionRequest{Width: 10, Height: 10})
		So(err, ShouldBeNil)
		time.Sleep(150 * time.Millisecond)

		Convey("Then an idle session is gone", func() {
			_, err := svc.Session(ctx, sess.ID)
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
		})
	})
}

func TestServiceSingleShard(t *testing.T) {
	Convey("Given concurrent commands for one session on a single shard", t, func() {
		svc := startedService(service.WithShardCount(1))
		ctx := context.Background()
		sess, err := svc.CreateSession(ctx, types.CreateSessionRequest{Width: 100, Height: 100})
		So(err, ShouldBeNil)

		var wg sync.WaitGroup
		results := make(chan error, 20)
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, err := svc.Do(ctx, model.Command{ID: fmt.Sprint(i), SessionID: sess.ID, Kind: model.CommandRedraw})
				results <- err
			}(i)
		}
		wg.Wait()
		svc.Stop()
		close(results)

		Convey("Then every command was applied once", func() {
			for err := range results {
				So(err, ShouldBeNil)
			}
			So(sess.Map.Sequence(), ShouldEqual, 21)
		})
	})
}
