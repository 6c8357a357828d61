package syncer

import (
	"context"
	"net/http"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	clocktesting "k8s.io/utils/clock/testing"

	"github.com/giantswarm/chronosphere-sync/pkg/chronosphere"
	"github.com/giantswarm/chronosphere-sync/pkg/chronosphere/chronospheretest"
	"github.com/giantswarm/chronosphere-sync/pkg/domain/asset"
)

func actions(result *Result) map[asset.Key]Action {
	out := make(map[asset.Key]Action)
	for _, o := range result.Outcomes {
		out[o.Key] = o.Action
	}
	return out
}

func countAction(result *Result, action Action) int {
	n := 0
	for _, o := range result.Outcomes {
		if o.Action == action {
			n++
		}
	}
	return n
}

// tierOf returns the tier of the resource written by a request.
func tierOf(r chronospheretest.Request) int {
	for _, kind := range asset.Kinds {
		if strings.HasPrefix(r.Path, "/api/v1/config/"+kind.Resource()) {
			return kind.Tier()
		}
	}
	return -1
}

var _ = Describe("Sync Service", func() {
	var (
		server *chronospheretest.Server
		api    chronosphere.API
	)

	BeforeEach(func() {
		server = chronospheretest.NewServer(testToken)
		api = newTestClient(server.URL, testToken)
	})

	AfterEach(func() {
		server.Close()
	})

	Context("When syncing a new asset set", func() {
		It("should create every asset", func() {
			set := licensingSet(10)
			tracker := validatedTracker(set)

			result := NewService(api, WithConcurrency(4)).Sync(ctx, set, tracker, nil)

			Expect(result.Err()).NotTo(HaveOccurred())
			Expect(countAction(result, ActionCreated)).To(Equal(13))
			Expect(tracker.Count(asset.StateApplied)).To(Equal(13))
			Expect(server.Objects(asset.KindMonitor)).To(HaveLen(10))

			policy, ok := server.Object(asset.KindNotificationPolicy, "default")
			Expect(ok).To(BeTrue())
			Expect(policy).To(HaveKey("routes"))
		})

		It("should sync owners before the assets they own", func() {
			set := licensingSet(10)

			NewService(api, WithConcurrency(8)).Sync(ctx, set, validatedTracker(set), nil)

			lastTier := 0
			for _, r := range server.Requests() {
				tier := tierOf(r)
				Expect(tier).To(BeNumerically(">=", lastTier), "request %s %s out of tier order", r.Method, r.Path)
				lastTier = tier
			}
		})

		It("should record start and finish time", func() {
			now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
			clock := clocktesting.NewFakePassiveClock(now)
			set := licensingSet(1)

			result := NewService(api, WithClock(clock)).Sync(ctx, set, validatedTracker(set), nil)

			Expect(result.StartedAt).To(Equal(now))
			Expect(result.FinishedAt).To(Equal(now))
			Expect(result.Duration()).To(BeZero())
		})
	})

	Context("When syncing the same set twice", func() {
		It("should be idempotent", func() {
			set := licensingSet(10)
			NewService(api).Sync(ctx, set, validatedTracker(set), nil)
			before := server.Objects(asset.KindMonitor)
			server.Reset()

			result := NewService(api).Sync(ctx, set, validatedTracker(set), nil)

			Expect(result.Err()).NotTo(HaveOccurred())
			Expect(countAction(result, ActionUnchanged)).To(Equal(13))
			Expect(server.Writes()).To(BeEmpty())
			Expect(server.Objects(asset.KindMonitor)).To(Equal(before))
		})

		It("should update assets that changed", func() {
			set := licensingSet(2)
			NewService(api).Sync(ctx, set, validatedTracker(set), nil)
			server.Reset()

			changed := asset.NewSet()
			for _, a := range set.All() {
				if a.Slug() == "monitor-01" {
					payload := a.Payload()
					payload["prometheus_query"] = "sum(rate(monitor_01[5m]))"
					a = asset.New(a.Key(), a.Name(), a.Source(), a.References(), payload)
				}
				Expect(changed.Add(a)).To(Succeed())
			}

			result := NewService(api).Sync(ctx, changed, validatedTracker(changed), nil)

			Expect(result.Err()).NotTo(HaveOccurred())
			Expect(actions(result)[asset.NewKey(asset.KindMonitor, "monitor-01")]).To(Equal(ActionUpdated))
			Expect(countAction(result, ActionUnchanged)).To(Equal(4))
			Expect(server.Writes()).To(HaveLen(1))

			obj, _ := server.Object(asset.KindMonitor, "monitor-01")
			Expect(obj["prometheus_query"]).To(Equal("sum(rate(monitor_01[5m]))"))
		})
	})

	Context("When the remote API fails", func() {
		It("should retry server errors", func() {
			server.Fail(chronospheretest.Failure{Method: http.MethodPost, Path: "/api/v1/config/monitors", Status: http.StatusServiceUnavailable, Times: 2})
			set := licensingSet(1)

			result := NewService(api).Sync(ctx, set, validatedTracker(set), nil)

			Expect(result.Err()).NotTo(HaveOccurred())
			Expect(countAction(result, ActionCreated)).To(Equal(4))
		})

		It("should not retry rejected requests and skip dependents", func() {
			server.Fail(chronospheretest.Failure{Method: http.MethodPost, Path: "/api/v1/config/collections", Status: http.StatusBadRequest})
			set := licensingSet(3)
			tracker := validatedTracker(set)

			result := NewService(api).Sync(ctx, set, tracker, nil)

			collectionKey := asset.NewKey(asset.KindCollection, "licensing")
			outcome, _ := result.Outcome(collectionKey)
			Expect(outcome.Action).To(Equal(ActionFailed))
			var rejected *asset.RejectedSyncError
			Expect(outcome.Err).To(BeAssignableToTypeOf(rejected))

			postCollections := 0
			for _, r := range server.Writes() {
				if strings.HasPrefix(r.Path, "/api/v1/config/collections") {
					postCollections++
				}
			}
			Expect(postCollections).To(Equal(1))

			for _, o := range result.Outcomes {
				if o.Key.Kind != asset.KindMonitor {
					continue
				}
				Expect(o.Action).To(Equal(ActionSkipped))
				Expect(o.Reason).To(Equal(ReasonDependencyFailed))
				var depErr *asset.DependencyFailedError
				Expect(o.Err).To(BeAssignableToTypeOf(depErr))
			}
			Expect(server.Objects(asset.KindMonitor)).To(BeEmpty())

			Expect(actions(result)[asset.NewKey(asset.KindTeam, "observability-team")]).To(Equal(ActionCreated))
			Expect(actions(result)[asset.NewKey(asset.KindNotificationPolicy, "default")]).To(Equal(ActionCreated))

			state, _ := tracker.State(collectionKey)
			Expect(state).To(Equal(asset.StateFailed))
			Expect(result.Err()).To(HaveOccurred())
			Expect(result.Failed()).To(HaveLen(4))
		})

		It("should report authentication failures", func() {
			set := licensingSet(1)

			result := NewService(newTestClient(server.URL, "wrong-token")).Sync(ctx, set, validatedTracker(set), nil)

			outcome, _ := result.Outcome(asset.NewKey(asset.KindTeam, "observability-team"))
			var authErr *asset.AuthError
			Expect(outcome.Err).To(BeAssignableToTypeOf(authErr))
			Expect(server.Writes()).To(BeEmpty())
		})

		It("should update when create conflicts", func() {
			// The team appears between the lookup and the create.
			server.Seed(asset.KindTeam, map[string]any{"slug": "observability-team", "name": "old"})
			server.Fail(chronospheretest.Failure{Method: http.MethodGet, Path: "/api/v1/config/teams/observability-team", Status: http.StatusNotFound, Times: 1})
			set := asset.NewSet()
			Expect(set.Add(testTeam("observability-team"))).To(Succeed())

			result := NewService(api).Sync(ctx, set, validatedTracker(set), nil)

			Expect(result.Err()).NotTo(HaveOccurred())
			Expect(actions(result)[asset.NewKey(asset.KindTeam, "observability-team")]).To(Equal(ActionUpdated))

			methods := []string{}
			for _, r := range server.Requests() {
				methods = append(methods, r.Method)
			}
			Expect(methods).To(Equal([]string{http.MethodGet, http.MethodPost, http.MethodPut}))

			obj, _ := server.Object(asset.KindTeam, "observability-team")
			Expect(obj["name"]).To(Equal("observability-team"))
		})
	})

	Context("When running in dry-run mode", func() {
		It("should make no remote calls", func() {
			set := licensingSet(10)
			tracker := validatedTracker(set)

			result := NewService(nil, WithDryRun(true)).Sync(ctx, set, tracker, nil)

			Expect(result.DryRun).To(BeTrue())
			Expect(result.Err()).NotTo(HaveOccurred())
			Expect(result.Count(asset.KindTeam, ActionSkipped)).To(Equal(1))
			Expect(result.Count(asset.KindCollection, ActionSkipped)).To(Equal(1))
			Expect(result.Count(asset.KindMonitor, ActionSkipped)).To(Equal(10))
			Expect(result.Count(asset.KindNotificationPolicy, ActionSkipped)).To(Equal(1))
			Expect(server.Requests()).To(BeEmpty())
			Expect(tracker.Count(asset.StateValidated)).To(Equal(13))
		})
	})

	Context("When only some assets are selected", func() {
		It("should sync the selected assets only", func() {
			set := licensingSet(3)

			result := NewService(api).Sync(ctx, set, validatedTracker(set), func(a *asset.Asset) bool {
				return a.Kind() != asset.KindMonitor || a.Slug() == "monitor-01"
			})

			Expect(result.Err()).NotTo(HaveOccurred())
			Expect(result.Count(asset.KindMonitor, ActionCreated)).To(Equal(1))
			Expect(result.Count(asset.KindMonitor, ActionSkipped)).To(Equal(2))
			outcome, _ := result.Outcome(asset.NewKey(asset.KindMonitor, "monitor-00"))
			Expect(outcome.Reason).To(Equal(ReasonNotSelected))
		})

		It("should not block dependents of unselected assets", func() {
			set := licensingSet(1)

			result := NewService(api).Sync(ctx, set, validatedTracker(set), func(a *asset.Asset) bool {
				return a.Kind() != asset.KindCollection
			})

			Expect(result.Count(asset.KindMonitor, ActionCreated)).To(Equal(1))
		})
	})

	Context("When assets were not validated", func() {
		It("should skip them", func() {
			set := licensingSet(1)
			tracker := asset.NewTracker(set.Keys())

			result := NewService(api).Sync(ctx, set, tracker, nil)

			Expect(countAction(result, ActionSkipped)).To(Equal(4))
			Expect(server.Requests()).To(BeEmpty())
		})
	})

	Context("When the run is cancelled", func() {
		It("should skip queued assets", func() {
			runCtx, cancel := context.WithCancel(ctx)
			defer cancel()

			set := asset.NewSet()
			for _, slug := range []string{"a", "b", "c"} {
				Expect(set.Add(testTeam(slug))).To(Succeed())
			}
			Expect(set.Add(testCollection("licensing", "a"))).To(Succeed())

			cancelling := &cancellingAPI{API: api, cancel: cancel}
			result := NewService(cancelling, WithConcurrency(1)).Sync(runCtx, set, validatedTracker(set), nil)

			outcome, _ := result.Outcome(asset.NewKey(asset.KindTeam, "a"))
			Expect(outcome.Action).To(Equal(ActionCreated))
			for _, slug := range []string{"b", "c"} {
				outcome, _ := result.Outcome(asset.NewKey(asset.KindTeam, slug))
				Expect(outcome.Reason).To(Equal(ReasonCancelled))
			}
			outcome, _ = result.Outcome(asset.NewKey(asset.KindCollection, "licensing"))
			Expect(outcome.Reason).To(Equal(ReasonCancelled))

			Expect(result.Err()).To(MatchError(ErrCancelled))
			_, ok := server.Object(asset.KindTeam, "a")
			Expect(ok).To(BeTrue())
		})
	})
})

// cancellingAPI cancels the run after the first successful create.
type cancellingAPI struct {
	chronosphere.API
	cancel context.CancelFunc
}

func (c *cancellingAPI) Create(ctx context.Context, kind asset.Kind, obj chronosphere.Object) (chronosphere.Object, error) {
	created, err := c.API.Create(ctx, kind, obj)
	c.cancel()
	return created, err
}
