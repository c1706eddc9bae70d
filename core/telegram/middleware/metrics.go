package middleware

import tele "gopkg.in/telebot.v4"

const countersKey = "reply_counters"

// Counters describe what a handler sent back for one update.
type Counters struct {
	Messages int
	Keyboard bool
}

// countingContext counts successful sends and edits made through it.
type countingContext struct {
	tele.Context
	n *Counters
}

func (c countingContext) track(err error, opts []any) error {
	if err != nil {
		return err
	}
	c.n.Messages++
	for _, o := range opts {
		switch v := o.(type) {
		case *tele.ReplyMarkup:
			c.n.Keyboard = c.n.Keyboard || v != nil
		case *tele.SendOptions:
			c.n.Keyboard = c.n.Keyboard || (v != nil && v.ReplyMarkup != nil)
		}
	}
	return nil
}

func (c countingContext) Send(what any, opts ...any) error {
	return c.track(c.Context.Send(what, opts...), opts)
}

func (c countingContext) Reply(what any, opts ...any) error {
	return c.track(c.Context.Reply(what, opts...), opts)
}

func (c countingContext) Edit(what any, opts ...any) error {
	return c.track(c.Context.Edit(what, opts...), opts)
}

func (c countingContext) EditOrSend(what any, opts ...any) error {
	return c.track(c.Context.EditOrSend(what, opts...), opts)
}

func (c countingContext) EditOrReply(what any, opts ...any) error {
	return c.track(c.Context.EditOrReply(what, opts...), opts)
}

// MessageMetricsMiddleware counts replies so the handler summary can report them.
func MessageMetricsMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		n := &Counters{}
		c.Set(countersKey, n)
		return next(countingContext{Context: c, n: n})
	}
}

// GetCounters returns the counters for c, zero when the middleware did not run.
func GetCounters(c tele.Context) Counters {
	if n, ok := c.Get(countersKey).(*Counters); ok {
		return *n
	}
	return Counters{}
}
