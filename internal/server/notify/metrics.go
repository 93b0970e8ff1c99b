package notify

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	mailsSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "addressbook_confirmation_mails_sent_total",
		Help: "Confirmation emails handed to the mail provider.",
	})
	mailsFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "addressbook_confirmation_mails_failed_total",
		Help: "Confirmation emails the provider rejected or that timed out.",
	})
	mailsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "addressbook_confirmation_mails_dropped_total",
		Help: "Confirmation emails dropped because the queue was full.",
	})
)
