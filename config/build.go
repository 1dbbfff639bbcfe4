package config

import (
	"errors"
	"fmt"

	"github.com/bkuner/opcUaUnifiedAutomation/bridge"
	"github.com/bkuner/opcUaUnifiedAutomation/logger"
	"github.com/bkuner/opcUaUnifiedAutomation/session"
)

// ClientFactory creates the protocol client of a configured session.
type ClientFactory func(cfg Session) (bridge.Client, error)

// Build creates the sessions, subscriptions and items of f in a new registry. opts are the
// registry wide session options, session entries override them.
//
// The returned registry is never nil. Entries that fail are skipped and their errors are
// returned joined.
func Build(f *File, newClient ClientFactory, opts ...session.Option) (*session.Registry, error) {
	reg := session.NewRegistry(opts...)

	var errs []error
	for i := range f.Sessions {
		errs = append(errs, buildSession(reg, &f.Sessions[i], newClient)...)
	}
	for i := range f.Items {
		if err := buildItem(reg, &f.Items[i]); err != nil {
			errs = append(errs, fmt.Errorf("item %s: %w", f.Items[i].label(), err))
		}
	}

	return reg, errors.Join(errs...)
}

func buildSession(reg *session.Registry, sc *Session, newClient ClientFactory) []error {
	client, err := newClient(*sc)
	if err != nil {
		return []error{fmt.Errorf("session %s: %w", sc.Tag, err)}
	}

	var opts []session.Option
	if sc.ReconnectInterval > 0 {
		opts = append(opts, session.WithReconnectInterval(sc.ReconnectInterval))
	}
	if sc.ReconnectMaxDelay > 0 {
		opts = append(opts, session.WithReconnectBackoff(sc.ReconnectMaxDelay))
	}
	if sc.ConnectTimeout > 0 {
		opts = append(opts, session.WithConnectTimeout(sc.ConnectTimeout))
	}
	if sc.PollInterval > 0 {
		opts = append(opts, session.WithPollInterval(sc.PollInterval))
	}

	s, err := reg.CreateSession(sc.Tag, sc.Endpoint, client, opts...)
	if err != nil {
		return []error{fmt.Errorf("session %s: %w", sc.Tag, err)}
	}

	var errs []error
	if sc.Debug != "" {
		level, err := logger.ParseLevel(sc.Debug)
		if err != nil {
			errs = append(errs, fmt.Errorf("session %s: %w", sc.Tag, err))
		} else {
			s.SetDebug(level)
		}
	}

	for _, sub := range sc.Subscriptions {
		var subOpts []session.SubscriptionOption
		if sub.PublishingInterval > 0 {
			subOpts = append(subOpts, session.WithPublishingInterval(sub.PublishingInterval))
		}
		if sub.LifetimeCount > 0 {
			subOpts = append(subOpts, session.WithLifetimeCount(sub.LifetimeCount))
		}
		if sub.MaxKeepAliveCount > 0 {
			subOpts = append(subOpts, session.WithMaxKeepAliveCount(sub.MaxKeepAliveCount))
		}
		if sub.Priority > 0 {
			subOpts = append(subOpts, session.WithPriority(sub.Priority))
		}

		if _, err := reg.CreateSubscription(sub.Tag, sc.Tag, subOpts...); err != nil {
			errs = append(errs, fmt.Errorf("subscription %s: %w", sub.Tag, err))
		}
	}

	return errs
}

func buildItem(reg *session.Registry, ic *Item) error {
	slot, err := ic.Slot()
	if err != nil {
		return err
	}
	dir, err := ic.direction()
	if err != nil {
		return err
	}
	discardOldest, err := ic.discardOldest()
	if err != nil {
		return err
	}

	opts := []session.ItemOption{
		session.WithDirection(dir),
		session.WithDiscardOldest(discardOldest),
		session.WithReadback(!ic.RdbkOff),
	}
	if ic.Name != "" {
		opts = append(opts, session.WithName(ic.Name))
	}
	if ic.Sampling != nil {
		opts = append(opts, session.WithSamplingInterval(*ic.Sampling))
	}
	if ic.QSize != nil {
		opts = append(opts, session.WithQueueSize(*ic.QSize))
	}

	switch {
	case ic.Link != "":
		_, err = reg.BindLink(ic.Link, slot, opts...)
	case ic.Tag != "" && ic.Address != "":
		_, err = reg.BindItem(ic.Address, ic.Tag, slot, opts...)
	default:
		err = errors.New("either link or tag and address are required")
	}

	return err
}
