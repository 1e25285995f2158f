package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registered once at package init so tests can construct services freely.
var (
	signInSuccess = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cic_sign_in_success_total",
		Help: "Successful password sign-ins",
	})
	signInFailure = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cic_sign_in_failure_total",
		Help: "Rejected password sign-ins",
	})
	signOuts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cic_sign_out_total",
		Help: "Sign-out calls, local and global",
	})
	sessionResolveFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cic_session_resolve_failure_total",
		Help: "Bearer tokens that failed to resolve to an active session",
	})
)

func IncSignInSuccess()          { signInSuccess.Inc() }
func IncSignInFailure()          { signInFailure.Inc() }
func IncSignOut()                { signOuts.Inc() }
func IncSessionResolveFailure() { sessionResolveFailures.Inc() }
