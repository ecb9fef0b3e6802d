package notify

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/imrishuroy/go-bakery-orderflow/internal/orders"
)

type sentMessage struct {
	to, body string
}

type fakeMessenger struct {
	mu   sync.Mutex
	sent []sentMessage
	fn   func(ctx context.Context, to string) error
}

func (f *fakeMessenger) SendMessage(ctx context.Context, to, body string) (string, error) {
	if f.fn != nil {
		if err := f.fn(ctx, to); err != nil {
			return "", err
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMessage{to: to, body: body})
	return "sms-" + to, nil
}

func (f *fakeMessenger) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

type sentEmail struct {
	to, subject, html string
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []sentEmail
	fn   func(ctx context.Context, to string) error
}

func (f *fakeMailer) SendEmail(ctx context.Context, to, subject, html string) (string, error) {
	if f.fn != nil {
		if err := f.fn(ctx, to); err != nil {
			return "", err
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentEmail{to: to, subject: subject, html: html})
	return "mail-" + to, nil
}

func (f *fakeMailer) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

func testOrder() *orders.Order {
	return &orders.Order{
		OrderID:     "0b5f7a9e-1111-2222-3333-444455556666",
		OrderNumber: "K7M2QX9P",
		Items: []orders.LineItem{
			{ProductRef: "p-1", Name: "Chocolate Truffle Cake", UnitPrice: 650, Quantity: 1, WeightLabel: "1kg"},
			{ProductRef: "p-2", Name: "Butter Croissant", UnitPrice: 87.5, Quantity: 4},
		},
		Customer: orders.CustomerInfo{
			Name:                 "Asha",
			Mobile:               "98765 43210",
			Email:                "asha@example.com",
			Address:              "12 MG Road",
			Landmark:             "Near the park",
			DeliveryInstructions: "Ring twice",
			DeliveryType:         orders.DeliveryTypeDelivery,
		},
		Subtotal:          1000,
		DeliveryFee:       0,
		Tax:               50,
		Total:             1050,
		PaymentMethod:     orders.PaymentCOD,
		Status:            orders.StatusPending,
		EstimatedDelivery: "30-45 min",
		Notifications:     orders.PendingNotifications(),
		CreatedAt:         time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC),
		UpdatedAt:         time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC),
	}
}

func testConfig() Config {
	return Config{
		BusinessPhone:  "+91 73730 42268",
		BusinessEmail:  "orders@bakery.example",
		ChannelTimeout: time.Second,
		MaxAttempts:    1,
	}
}

func newTestDispatcher(cfg Config, m Messenger, mail Mailer, opts ...Option) *Dispatcher {
	return NewDispatcher(cfg, NewRenderer(Brand{UPIID: "bakery@oksbi", SupportNumber: "+917373042268", AdminURL: "https://bakery.example/admin"}), m, mail, zap.NewNop(), opts...)
}

func TestDispatch_AllChannelsSent(t *testing.T) {
	m := &fakeMessenger{}
	mail := &fakeMailer{}
	d := newTestDispatcher(testConfig(), m, mail)

	res := d.Dispatch(context.Background(), testOrder())

	assert.True(t, res.CustomerMessageSent)
	assert.True(t, res.CustomerEmailSent)
	assert.True(t, res.BusinessMessageSent)
	assert.True(t, res.BusinessEmailSent)
	assert.Empty(t, res.Errors)
	assert.Len(t, res.Channels, 4)
	assert.Equal(t, 2, m.count())
	assert.Equal(t, 2, mail.count())

	cr, ok := res.Lookup(ChannelCustomerMessage)
	require.True(t, ok)
	assert.Equal(t, "sms-+919876543210", cr.MessageID)
	assert.False(t, res.CompletedAt.Before(res.StartedAt))
}

func TestDispatch_NoCustomerEmailSkipsOnlyThatChannel(t *testing.T) {
	m := &fakeMessenger{}
	mail := &fakeMailer{}
	d := newTestDispatcher(testConfig(), m, mail)

	o := testOrder()
	o.Customer.Email = ""
	res := d.Dispatch(context.Background(), o)

	assert.False(t, res.CustomerEmailSent)
	cr, _ := res.Lookup(ChannelCustomerEmail)
	assert.Equal(t, OutcomeSkipped, cr.Outcome)
	assert.Equal(t, SkipNoRecipient, cr.SkipReason)
	assert.Zero(t, cr.Attempts)

	assert.True(t, res.CustomerMessageSent)
	assert.True(t, res.BusinessMessageSent)
	assert.True(t, res.BusinessEmailSent)
	assert.Empty(t, res.Errors)
	assert.Equal(t, 1, mail.count())
}

func TestDispatch_AlwaysFailingProviders(t *testing.T) {
	boom := errors.New("provider down")
	m := &fakeMessenger{fn: func(context.Context, string) error { return boom }}
	mail := &fakeMailer{fn: func(context.Context, string) error { return boom }}
	d := newTestDispatcher(testConfig(), m, mail)

	var res *Result
	require.NotPanics(t, func() {
		res = d.Dispatch(context.Background(), testOrder())
	})

	assert.False(t, res.CustomerMessageSent)
	assert.False(t, res.CustomerEmailSent)
	assert.False(t, res.BusinessMessageSent)
	assert.False(t, res.BusinessEmailSent)
	assert.Len(t, res.Errors, 4)
	for _, cr := range res.Channels {
		assert.Equal(t, OutcomeFailed, cr.Outcome, cr.Channel)
		assert.Contains(t, cr.Error, "provider down")
	}
}

func TestDispatch_PanickingProviderIsContained(t *testing.T) {
	m := &fakeMessenger{fn: func(context.Context, string) error { panic("nil map") }}
	mail := &fakeMailer{}
	d := newTestDispatcher(testConfig(), m, mail)

	res := d.Dispatch(context.Background(), testOrder())

	assert.False(t, res.CustomerMessageSent)
	assert.False(t, res.BusinessMessageSent)
	assert.True(t, res.CustomerEmailSent)
	assert.True(t, res.BusinessEmailSent)
	cr, _ := res.Lookup(ChannelCustomerMessage)
	assert.Contains(t, cr.Error, "panic")
}

func TestDispatch_MissingProvidersSkip(t *testing.T) {
	d := newTestDispatcher(testConfig(), nil, nil)

	res := d.Dispatch(context.Background(), testOrder())

	for _, cr := range res.Channels {
		assert.Equal(t, OutcomeSkipped, cr.Outcome, cr.Channel)
		assert.Equal(t, SkipNoProvider, cr.SkipReason, cr.Channel)
	}
	assert.Empty(t, res.Errors)
}

func TestDispatch_NoBusinessContactsSkip(t *testing.T) {
	cfg := testConfig()
	cfg.BusinessPhone = ""
	cfg.BusinessEmail = ""
	d := newTestDispatcher(cfg, &fakeMessenger{}, &fakeMailer{})

	res := d.Dispatch(context.Background(), testOrder())

	assert.True(t, res.CustomerMessageSent)
	assert.True(t, res.CustomerEmailSent)
	for _, ch := range []Channel{ChannelBusinessMessage, ChannelBusinessEmail} {
		cr, _ := res.Lookup(ch)
		assert.Equal(t, OutcomeSkipped, cr.Outcome)
		assert.Equal(t, SkipNoRecipient, cr.SkipReason)
	}
}

func TestDispatch_InvalidMobileFails(t *testing.T) {
	m := &fakeMessenger{}
	d := newTestDispatcher(testConfig(), m, &fakeMailer{})

	o := testOrder()
	o.Customer.Mobile = "12-34"
	res := d.Dispatch(context.Background(), o)

	cr, _ := res.Lookup(ChannelCustomerMessage)
	assert.Equal(t, OutcomeFailed, cr.Outcome)
	assert.Contains(t, cr.Error, ErrInvalidRecipient.Error())
	assert.True(t, res.BusinessMessageSent)
	assert.Equal(t, 1, m.count())
}

func TestDispatch_SlowProviderTimesOut(t *testing.T) {
	cfg := testConfig()
	cfg.ChannelTimeout = 20 * time.Millisecond
	m := &fakeMessenger{fn: func(ctx context.Context, to string) error {
		if to == "+919876543210" {
			<-ctx.Done()
			return ctx.Err()
		}
		return nil
	}}
	d := newTestDispatcher(cfg, m, &fakeMailer{})

	start := time.Now()
	res := d.Dispatch(context.Background(), testOrder())

	assert.Less(t, time.Since(start), 2*time.Second)
	cr, _ := res.Lookup(ChannelCustomerMessage)
	assert.Equal(t, OutcomeFailed, cr.Outcome)
	assert.Contains(t, cr.Error, "timed out")
	assert.True(t, res.BusinessMessageSent)
	assert.True(t, res.CustomerEmailSent)
}

func TestDispatch_BoundedRetry(t *testing.T) {
	cfg := testConfig()
	cfg.MaxAttempts = 2
	var mu sync.Mutex
	calls := map[string]int{}
	m := &fakeMessenger{fn: func(_ context.Context, to string) error {
		mu.Lock()
		defer mu.Unlock()
		calls[to]++
		if calls[to] == 1 {
			return errors.New("throttled")
		}
		return nil
	}}
	d := newTestDispatcher(cfg, m, &fakeMailer{})

	res := d.Dispatch(context.Background(), testOrder())

	cr, _ := res.Lookup(ChannelCustomerMessage)
	assert.Equal(t, OutcomeSent, cr.Outcome)
	assert.Equal(t, 2, cr.Attempts)
	assert.Empty(t, res.Errors)
}

func TestNewDispatcher_CapsAttempts(t *testing.T) {
	cfg := testConfig()
	cfg.MaxAttempts = 10
	var mu sync.Mutex
	n := 0
	m := &fakeMessenger{fn: func(context.Context, string) error {
		mu.Lock()
		defer mu.Unlock()
		n++
		return errors.New("nope")
	}}
	cfg.BusinessPhone = ""
	d := newTestDispatcher(cfg, m, nil)

	res := d.Dispatch(context.Background(), testOrder())

	cr, _ := res.Lookup(ChannelCustomerMessage)
	assert.Equal(t, 3, cr.Attempts)
	assert.Equal(t, 3, n)
}

func TestDispatch_ResendSendsAgain(t *testing.T) {
	m := &fakeMessenger{}
	mail := &fakeMailer{}
	d := newTestDispatcher(testConfig(), m, mail)
	o := testOrder()

	first := d.Dispatch(context.Background(), o)
	second := d.Dispatch(context.Background(), o)

	assert.NotSame(t, first, second)
	assert.True(t, first.CustomerMessageSent)
	assert.True(t, second.CustomerMessageSent)
	assert.Equal(t, 4, m.count())
	assert.Equal(t, 4, mail.count())
}

func TestDispatch_ObserverSeesEveryChannel(t *testing.T) {
	var mu sync.Mutex
	seen := map[Channel]Outcome{}
	d := newTestDispatcher(testConfig(), &fakeMessenger{}, nil, WithObserver(func(ch Channel, o Outcome) {
		mu.Lock()
		defer mu.Unlock()
		seen[ch] = o
	}))

	d.Dispatch(context.Background(), testOrder())

	assert.Equal(t, map[Channel]Outcome{
		ChannelCustomerMessage: OutcomeSent,
		ChannelCustomerEmail:   OutcomeSkipped,
		ChannelBusinessMessage: OutcomeSent,
		ChannelBusinessEmail:   OutcomeSkipped,
	}, seen)
}

func TestDispatch_NilOrder(t *testing.T) {
	d := newTestDispatcher(testConfig(), &fakeMessenger{}, &fakeMailer{})
	res := d.Dispatch(context.Background(), nil)
	require.NotNil(t, res)
	assert.NotEmpty(t, res.Errors)
}

func TestResultStatus(t *testing.T) {
	started := time.Date(2026, 3, 14, 9, 31, 0, 0, time.UTC)
	res := &Result{
		StartedAt:   started,
		CompletedAt: started.Add(time.Second),
		Channels: []ChannelResult{
			{Channel: ChannelCustomerMessage, Outcome: OutcomeSent},
			{Channel: ChannelCustomerEmail, Outcome: OutcomeSkipped},
			{Channel: ChannelBusinessMessage, Outcome: OutcomeFailed, Error: "x"},
			{Channel: ChannelBusinessEmail, Outcome: OutcomeSent},
		},
		Errors: []string{"business_message: x"},
	}

	st := res.Status(orders.PendingNotifications(), false)
	assert.Equal(t, orders.ChannelSent, st.CustomerMessage)
	assert.Equal(t, orders.ChannelSkipped, st.CustomerEmail)
	assert.Equal(t, orders.ChannelFailed, st.BusinessMessage)
	assert.Equal(t, orders.ChannelSent, st.BusinessEmail)
	assert.Equal(t, 1, st.Attempts)
	assert.Equal(t, "business_message: x", st.LastError)
	require.NotNil(t, st.CompletedAt)
	assert.Equal(t, started.Add(time.Second), *st.CompletedAt)

	again := res.Status(st, true)
	assert.Equal(t, orders.ChannelResent, again.CustomerMessage)
	assert.Equal(t, orders.ChannelResent, again.BusinessEmail)
	assert.Equal(t, 2, again.Attempts)

	assert.Equal(t, map[Outcome]int{OutcomeSent: 2, OutcomeSkipped: 1, OutcomeFailed: 1}, res.Counts())
}

func TestNormalizeMobile(t *testing.T) {
	cases := []struct {
		in   string
		want string
		err  bool
	}{
		{"9876543210", "+919876543210", false},
		{"98765 43210", "+919876543210", false},
		{"+91-98765-43210", "+919876543210", false},
		{"919876543210", "+919876543210", false},
		{"9123456789", "+919123456789", false},
		{"", "", true},
		{"abc", "", true},
		{"12345", "", true},
	}
	for _, tc := range cases {
		got, err := NormalizeMobile(tc.in, "")
		if tc.err {
			assert.ErrorIs(t, err, ErrInvalidRecipient, tc.in)
			continue
		}
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}

	got, err := NormalizeMobile("2025550123", "1")
	require.NoError(t, err)
	assert.Equal(t, "+12025550123", got)
}

func TestRenderer_CustomerMessage(t *testing.T) {
	r := NewRenderer(Brand{UPIID: "bakery@oksbi", SupportNumber: "+917373042268"})
	msg, err := r.CustomerMessage(testOrder())
	require.NoError(t, err)

	for _, want := range []string{
		"Ding Dong Cake & Bake",
		"K7M2QX9P",
		"0b5f7a9e-1111-2222-3333-444455556666",
		"1. Chocolate Truffle Cake x1 @ ₹650.00 = ₹650.00",
		"2. Butter Croissant x4 @ ₹87.50 = ₹350.00",
		"Total: ₹1050.00",
		"Payment: Cash on Delivery",
		"Deliver to: 12 MG Road",
		"Landmark: Near the park",
		"Instructions: Ring twice",
		"within 10 minutes",
		"UPI ID: bakery@oksbi",
		"Support: +917373042268",
	} {
		assert.Contains(t, msg, want)
	}
}

func TestRenderer_PickupFraming(t *testing.T) {
	r := NewRenderer(Brand{StoreAddress: "5 Baker Street", StoreHours: "9am-9pm"})
	o := testOrder()
	o.Customer.DeliveryType = orders.DeliveryTypePickup
	o.Customer.Address = ""

	msg, err := r.CustomerMessage(o)
	require.NoError(t, err)
	assert.Contains(t, msg, "Pickup from: 5 Baker Street")
	assert.Contains(t, msg, "Hours: 9am-9pm")
	assert.NotContains(t, msg, "Deliver to")

	biz, err := r.BusinessMessage(o)
	require.NoError(t, err)
	assert.Contains(t, biz, "NEW SELF PICKUP ORDER RECEIVED!")
	assert.Contains(t, biz, "Self Pickup")
	assert.Contains(t, biz, "Pickup from: 5 Baker Street")
	assert.Contains(t, biz, "Hours: 9am-9pm")
	assert.Contains(t, biz, "@ ₹87.50")
	assert.NotContains(t, biz, "Delivery Address")

	email, err := r.BusinessEmail(o)
	require.NoError(t, err)
	assert.Contains(t, email.Subject, "New Self Pickup Order - K7M2QX9P")
	assert.Contains(t, email.HTML, "Self Pickup")
	assert.Contains(t, email.HTML, "5 Baker Street")
	assert.Contains(t, email.HTML, "9am-9pm")
	assert.Contains(t, email.HTML, "₹87.50")
	assert.NotContains(t, email.HTML, "Delivery Address")
}

func TestRenderer_BusinessMessage(t *testing.T) {
	r := NewRenderer(Brand{AdminURL: "https://bakery.example/admin"})
	msg, err := r.BusinessMessage(testOrder())
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(msg, "NEW DELIVERY ORDER RECEIVED!"))
	assert.Contains(t, msg, "Mobile: 98765 43210")
	assert.Contains(t, msg, "Email: asha@example.com")
	assert.Contains(t, msg, "2. Butter Croissant - 4x @ ₹87.50 - ₹350.00")
	assert.Contains(t, msg, "Delivery Address:\n12 MG Road")
	assert.Contains(t, msg, "View order details: https://bakery.example/admin")
}

func TestRenderer_EmailsEscapeAndAreDeterministic(t *testing.T) {
	r := NewRenderer(Brand{})
	o := testOrder()
	o.Customer.Name = `<script>alert("x")</script>`

	first, err := r.CustomerEmail(o)
	require.NoError(t, err)
	second, err := r.CustomerEmail(o)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	assert.NotContains(t, first.HTML, "<script>")
	assert.Contains(t, first.HTML, "&lt;script&gt;")
	assert.Contains(t, first.HTML, "14 Mar 2026, 09:30 AM")
	assert.Contains(t, first.HTML, "Chocolate Truffle Cake (1kg)")
	assert.Contains(t, first.HTML, "Total Amount: ₹1050.00")
	assert.Contains(t, first.Subject, "within 10 minutes")

	biz, err := r.BusinessEmail(o)
	require.NoError(t, err)
	assert.Contains(t, biz.HTML, "asha@example.com")
	assert.Contains(t, biz.HTML, "Ring twice")
	assert.NotContains(t, biz.HTML, "<script>")
}

func TestRenderer_DefaultCustomerName(t *testing.T) {
	r := NewRenderer(Brand{})
	o := testOrder()
	o.Customer.Name = " "
	msg, err := r.CustomerMessage(o)
	require.NoError(t, err)
	assert.Contains(t, msg, "Customer: Customer")
}
