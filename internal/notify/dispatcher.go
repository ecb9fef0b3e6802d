// Package notify fans a saved order out to the four notification channels.
// Each channel is attempted independently; a failure on one never affects
// the others and no error crosses Dispatch.
package notify

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/imrishuroy/go-bakery-orderflow/internal/orders"
)

// Messenger sends a text message to an E.164 number.
type Messenger interface {
	SendMessage(ctx context.Context, to, body string) (messageID string, err error)
}

// Mailer sends an HTML email.
type Mailer interface {
	SendEmail(ctx context.Context, to, subject, html string) (messageID string, err error)
}

// Channel names one notification path.
type Channel string

const (
	ChannelCustomerMessage Channel = "customer_message"
	ChannelCustomerEmail   Channel = "customer_email"
	ChannelBusinessMessage Channel = "business_message"
	ChannelBusinessEmail   Channel = "business_email"
)

// Channels lists every channel in reporting order.
var Channels = []Channel{ChannelCustomerMessage, ChannelCustomerEmail, ChannelBusinessMessage, ChannelBusinessEmail}

// Outcome is what happened on one channel.
type Outcome string

const (
	OutcomeSent    Outcome = "sent"
	OutcomeFailed  Outcome = "failed"
	OutcomeSkipped Outcome = "skipped"
)

// Skip reasons.
const (
	SkipNoRecipient = "no_recipient"
	SkipNoProvider  = "provider_unavailable"
)

// ChannelResult is the outcome of a single channel.
type ChannelResult struct {
	Channel    Channel `json:"channel"`
	Outcome    Outcome `json:"outcome"`
	Attempts   int     `json:"attempts"`
	MessageID  string  `json:"messageId,omitempty"`
	SkipReason string  `json:"skipReason,omitempty"`
	Error      string  `json:"error,omitempty"`
}

// Result aggregates one dispatch.
type Result struct {
	OrderID             string          `json:"orderId"`
	CustomerMessageSent bool            `json:"customerMessageSent"`
	CustomerEmailSent   bool            `json:"customerEmailSent"`
	BusinessMessageSent bool            `json:"businessMessageSent"`
	BusinessEmailSent   bool            `json:"businessEmailSent"`
	StartedAt           time.Time       `json:"startedAt"`
	CompletedAt         time.Time       `json:"completedAt"`
	Channels            []ChannelResult `json:"channels"`
	Errors              []string        `json:"errors"`
}

// Lookup returns the result for ch.
func (r *Result) Lookup(ch Channel) (ChannelResult, bool) {
	for _, cr := range r.Channels {
		if cr.Channel == ch {
			return cr, true
		}
	}
	return ChannelResult{}, false
}

// Counts tallies outcomes, e.g. for metrics.
func (r *Result) Counts() map[Outcome]int {
	out := map[Outcome]int{}
	for _, cr := range r.Channels {
		out[cr.Outcome]++
	}
	return out
}

// Status folds the result into the persisted notification state. Sent
// channels are recorded as resent when resend is true.
func (r *Result) Status(prev orders.NotificationStatus, resend bool) orders.NotificationStatus {
	next := prev
	next.Attempts = prev.Attempts + 1
	started := r.StartedAt
	completed := r.CompletedAt
	next.LastAttempt = &started
	next.CompletedAt = &completed
	next.LastError = ""
	if len(r.Errors) > 0 {
		next.LastError = r.Errors[len(r.Errors)-1]
	}

	for _, cr := range r.Channels {
		var st orders.ChannelStatus
		switch cr.Outcome {
		case OutcomeSent:
			st = orders.ChannelSent
			if resend {
				st = orders.ChannelResent
			}
		case OutcomeFailed:
			st = orders.ChannelFailed
		default:
			st = orders.ChannelSkipped
		}
		switch cr.Channel {
		case ChannelCustomerMessage:
			next.CustomerMessage = st
		case ChannelCustomerEmail:
			next.CustomerEmail = st
		case ChannelBusinessMessage:
			next.BusinessMessage = st
		case ChannelBusinessEmail:
			next.BusinessEmail = st
		}
	}
	return next
}

// Config holds the business recipients and delivery tuning.
type Config struct {
	BusinessPhone  string
	BusinessEmail  string
	CountryCode    string
	ChannelTimeout time.Duration
	MaxAttempts    int
	RetryBackoff   time.Duration
}

const (
	defaultChannelTimeout = 12 * time.Second
	maxAttemptsCap        = 3
)

// Observer is told the outcome of every channel.
type Observer func(ch Channel, outcome Outcome)

// Dispatcher sends order notifications. A nil Messenger or Mailer disables
// the channels that need it.
type Dispatcher struct {
	cfg       Config
	renderer  *Renderer
	messenger Messenger
	mailer    Mailer
	logger    *zap.Logger
	observe   Observer
	now       func() time.Time
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithObserver registers fn to receive per-channel outcomes.
func WithObserver(fn Observer) Option {
	return func(d *Dispatcher) { d.observe = fn }
}

// NewDispatcher builds a Dispatcher.
func NewDispatcher(cfg Config, renderer *Renderer, messenger Messenger, mailer Mailer, logger *zap.Logger, opts ...Option) *Dispatcher {
	if cfg.ChannelTimeout <= 0 {
		cfg.ChannelTimeout = defaultChannelTimeout
	}
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if cfg.MaxAttempts > maxAttemptsCap {
		cfg.MaxAttempts = maxAttemptsCap
	}
	if cfg.CountryCode == "" {
		cfg.CountryCode = DefaultCountryCode
	}
	if renderer == nil {
		renderer = NewRenderer(DefaultBrand)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	d := &Dispatcher{
		cfg:       cfg,
		renderer:  renderer,
		messenger: messenger,
		mailer:    mailer,
		logger:    logger,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// sendFunc performs one delivery attempt.
type sendFunc func(ctx context.Context) (string, error)

type channelJob struct {
	channel Channel
	skip    string
	// prepErr fails the channel before any attempt, e.g. a bad recipient.
	prepErr error
	send    sendFunc
}

// Dispatch attempts all four channels for o and reports what happened. It
// never returns an error; every failure is recorded in the Result. Calling
// it again sends again.
func (d *Dispatcher) Dispatch(ctx context.Context, o *orders.Order) *Result {
	res := &Result{StartedAt: d.now().UTC(), Errors: []string{}}
	if o == nil {
		res.CompletedAt = d.now().UTC()
		res.Errors = append(res.Errors, "order is nil")
		return res
	}
	res.OrderID = o.OrderID

	jobs := d.jobs(o)
	results := make([]ChannelResult, len(jobs))

	var wg sync.WaitGroup
	for i, job := range jobs {
		wg.Add(1)
		go func(i int, job channelJob) {
			defer wg.Done()
			results[i] = d.run(ctx, o.OrderID, job)
		}(i, job)
	}
	wg.Wait()

	res.Channels = results
	for _, cr := range results {
		if cr.Error != "" {
			res.Errors = append(res.Errors, fmt.Sprintf("%s: %s", cr.Channel, cr.Error))
		}
		sent := cr.Outcome == OutcomeSent
		switch cr.Channel {
		case ChannelCustomerMessage:
			res.CustomerMessageSent = sent
		case ChannelCustomerEmail:
			res.CustomerEmailSent = sent
		case ChannelBusinessMessage:
			res.BusinessMessageSent = sent
		case ChannelBusinessEmail:
			res.BusinessEmailSent = sent
		}
	}
	res.CompletedAt = d.now().UTC()

	d.logger.Info("notifications dispatched",
		zap.String("order_id", o.OrderID),
		zap.Bool("customer_message", res.CustomerMessageSent),
		zap.Bool("customer_email", res.CustomerEmailSent),
		zap.Bool("business_message", res.BusinessMessageSent),
		zap.Bool("business_email", res.BusinessEmailSent),
		zap.Int("errors", len(res.Errors)),
	)
	return res
}

func (d *Dispatcher) jobs(o *orders.Order) []channelJob {
	c := o.Customer
	jobs := make([]channelJob, 0, len(Channels))

	// customer message
	job := channelJob{channel: ChannelCustomerMessage}
	switch {
	case c.Mobile == "":
		job.skip = SkipNoRecipient
	case d.messenger == nil:
		job.skip = SkipNoProvider
	default:
		to, err := NormalizeMobile(c.Mobile, d.cfg.CountryCode)
		if err != nil {
			job.prepErr = fmt.Errorf("mobile %q: %w", c.Mobile, err)
			break
		}
		job.send = func(ctx context.Context) (string, error) {
			body, err := d.renderer.CustomerMessage(o)
			if err != nil {
				return "", err
			}
			return d.messenger.SendMessage(ctx, to, body)
		}
	}
	jobs = append(jobs, job)

	// customer email
	job = channelJob{channel: ChannelCustomerEmail}
	switch {
	case c.Email == "":
		job.skip = SkipNoRecipient
	case d.mailer == nil:
		job.skip = SkipNoProvider
	default:
		job.send = func(ctx context.Context) (string, error) {
			email, err := d.renderer.CustomerEmail(o)
			if err != nil {
				return "", err
			}
			return d.mailer.SendEmail(ctx, c.Email, email.Subject, email.HTML)
		}
	}
	jobs = append(jobs, job)

	// business message
	job = channelJob{channel: ChannelBusinessMessage}
	switch {
	case d.cfg.BusinessPhone == "":
		job.skip = SkipNoRecipient
	case d.messenger == nil:
		job.skip = SkipNoProvider
	default:
		to, err := NormalizeMobile(d.cfg.BusinessPhone, d.cfg.CountryCode)
		if err != nil {
			job.prepErr = fmt.Errorf("business phone: %w", err)
			break
		}
		job.send = func(ctx context.Context) (string, error) {
			body, err := d.renderer.BusinessMessage(o)
			if err != nil {
				return "", err
			}
			return d.messenger.SendMessage(ctx, to, body)
		}
	}
	jobs = append(jobs, job)

	// business email
	job = channelJob{channel: ChannelBusinessEmail}
	switch {
	case d.cfg.BusinessEmail == "":
		job.skip = SkipNoRecipient
	case d.mailer == nil:
		job.skip = SkipNoProvider
	default:
		job.send = func(ctx context.Context) (string, error) {
			email, err := d.renderer.BusinessEmail(o)
			if err != nil {
				return "", err
			}
			return d.mailer.SendEmail(ctx, d.cfg.BusinessEmail, email.Subject, email.HTML)
		}
	}
	jobs = append(jobs, job)

	return jobs
}

func (d *Dispatcher) run(ctx context.Context, orderID string, job channelJob) (cr ChannelResult) {
	cr = ChannelResult{Channel: job.channel}
	log := d.logger.With(zap.String("order_id", orderID), zap.String("channel", string(job.channel)))

	defer func() {
		if r := recover(); r != nil {
			cr.Outcome = OutcomeFailed
			cr.Error = fmt.Sprintf("panic: %v", r)
			log.Error("notification channel panicked", zap.Any("panic", r))
		}
		if d.observe != nil {
			d.observe(cr.Channel, cr.Outcome)
		}
	}()

	switch {
	case job.skip != "":
		cr.Outcome = OutcomeSkipped
		cr.SkipReason = job.skip
		log.Debug("notification channel skipped", zap.String("reason", job.skip))
		return cr
	case job.prepErr != nil:
		cr.Outcome = OutcomeFailed
		cr.Error = job.prepErr.Error()
		log.Warn("notification channel failed", zap.String("outcome", string(cr.Outcome)), zap.Error(job.prepErr))
		return cr
	}

	var lastErr error
	for attempt := 1; attempt <= d.cfg.MaxAttempts; attempt++ {
		cr.Attempts = attempt
		id, err := d.attempt(ctx, job.send)
		if err == nil {
			cr.Outcome = OutcomeSent
			cr.MessageID = id
			log.Info("notification sent", zap.Int("attempt", attempt), zap.String("message_id", id))
			return cr
		}
		lastErr = err
		log.Warn("notification attempt failed", zap.Int("attempt", attempt), zap.Error(err))

		if ctx.Err() != nil || attempt == d.cfg.MaxAttempts {
			break
		}
		if d.cfg.RetryBackoff > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(d.cfg.RetryBackoff):
			}
		}
	}

	cr.Outcome = OutcomeFailed
	cr.Error = lastErr.Error()
	return cr
}

// attempt runs send under the per-channel timeout.
func (d *Dispatcher) attempt(ctx context.Context, send sendFunc) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, d.cfg.ChannelTimeout)
	defer cancel()

	type reply struct {
		id  string
		err error
	}
	done := make(chan reply, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- reply{err: fmt.Errorf("panic: %v", r)}
			}
		}()
		id, err := send(ctx)
		done <- reply{id: id, err: err}
	}()

	select {
	case r := <-done:
		if r.err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("timed out after %s: %w", d.cfg.ChannelTimeout, r.err)
		}
		return r.id, r.err
	case <-ctx.Done():
		return "", fmt.Errorf("timed out after %s: %w", d.cfg.ChannelTimeout, ctx.Err())
	}
}
