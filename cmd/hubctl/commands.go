package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"strings"
	"sync"
	"time"

	"arc_community_backend/internal/catalog"
	"arc_community_backend/internal/client/api"
	"arc_community_backend/internal/client/badges"
	"arc_community_backend/internal/client/chat"
	"arc_community_backend/internal/client/notifications"
	"arc_community_backend/internal/client/offers"
	"arc_community_backend/internal/client/presence"
	"arc_community_backend/internal/events"
	"arc_community_backend/internal/group"
	"arc_community_backend/internal/marketplace"

	"github.com/google/uuid"
)

func (a *app) register(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("register", flag.ExitOnError)
	username := fs.String("username", "", "Username")
	email := fs.String("email", "", "Email address")
	password := fs.String("password", "", "Password (min 8 characters)")
	_ = fs.Parse(args)

	res, err := a.api.Register(ctx, api.RegisterInput{
		Username: *username, Email: *email, Password: *password, PasswordConfirmation: *password,
	})
	if err != nil {
		return err
	}
	a.toaster.Success("Welcome, " + res.User.Username + ".")
	return a.session.Navigate("dashboard")
}

func (a *app) login(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	email := fs.String("email", "", "Email address")
	password := fs.String("password", "", "Password")
	_ = fs.Parse(args)

	res, err := a.api.Login(ctx, *email, *password)
	if err != nil {
		return err
	}
	a.toaster.Success("Logged in as " + res.User.Username + ".")
	return a.session.Navigate("dashboard")
}

func (a *app) logout(ctx context.Context) error {
	if err := a.api.Logout(ctx); err != nil {
		a.toaster.Info("Session cleared locally: " + api.Message(err))
		return nil
	}
	a.toaster.Success("Logged out.")
	return nil
}

func (a *app) back() error {
	view, ok, err := a.session.Back()
	if err != nil {
		return err
	}
	if !ok {
		fmt.Println("Nowhere to go back to.")
		return nil
	}
	fmt.Println(view)
	return nil
}

func (a *app) offers(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("offers", flag.ExitOnError)
	listing := fs.String("listing", "", "Listing id")
	create := fs.String("create", "", "Comma-separated items to offer")
	message := fs.String("message", "", "Message attached to an offer or counter-offer")
	accept := fs.String("accept", "", "Offer id to accept")
	reject := fs.String("reject", "", "Offer id to reject")
	counter := fs.String("counter", "", "Offer id to counter")
	items := fs.String("items", "", "Comma-separated items for -counter")
	watch := fs.Bool("watch", false, "Keep running and print offer updates")
	_ = fs.Parse(args)

	if err := a.requireLogin(); err != nil {
		return err
	}
	listingID, err := uuid.Parse(*listing)
	if err != nil {
		return fmt.Errorf("-listing must be a listing id")
	}
	userID, _ := uuid.Parse(a.session.UserID())

	var (
		bus  = noopBus{}
		flow *offers.Flow
	)
	if !*watch {
		flow = offers.NewFlow(a.api, bus, a.toaster, listingID, userID, a.logger)
	} else {
		sc, done, err := a.connectSocket(ctx)
		if err != nil {
			return err
		}
		defer func() { <-done }()
		defer sc.Close()
		flow = offers.NewFlow(a.api, sc, a.toaster, listingID, userID, a.logger)
		defer flow.Subscribe()()
	}
	accepted := make(chan struct{}, 1)
	flow.OnAccepted(func(o marketplace.OfferResponse) {
		fmt.Printf("Trade completed: offer %s accepted.\n", o.ID)
		accepted <- struct{}{}
	})

	if err := flow.Load(ctx); err != nil {
		return err
	}
	_ = a.session.Navigate("marketplace/listings/" + listingID.String())

	switch {
	case *create != "":
		err = flow.Create(ctx, *create, *message)
	case *accept != "":
		err = withOfferID(*accept, func(id uuid.UUID) error { return flow.Accept(ctx, id) })
	case *reject != "":
		err = withOfferID(*reject, func(id uuid.UUID) error { return flow.Reject(ctx, id) })
	case *counter != "":
		err = withOfferID(*counter, func(id uuid.UUID) error {
			flow.SetCounterDraft(id, *items)
			return flow.Counter(ctx, id, *message)
		})
	}
	if err != nil {
		return err
	}

	select {
	case <-accepted:
		return nil
	default:
	}
	printOffers(flow)
	if !*watch {
		return nil
	}

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	last := len(flow.Offers())
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if n := len(flow.Offers()); n != last {
				last = n
				printOffers(flow)
			}
		}
	}
}

func withOfferID(raw string, fn func(uuid.UUID) error) error {
	id, err := uuid.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid offer id %q", raw)
	}
	return fn(id)
}

func printOffers(flow *offers.Flow) {
	l := flow.Listing()
	role := "bidder"
	if flow.IsOwner() {
		role = "owner"
	}
	fmt.Printf("%s [%s] offering %s for %s (you are the %s)\n",
		l.Title, l.Status, l.OfferingItem, strings.Join(l.SeekingItems, ", "), role)
	for _, o := range flow.Offers() {
		items := o.Items
		if len(o.LastCounterItems) > 0 {
			items = o.LastCounterItems
		}
		fmt.Printf("  %s  %-9s  %s", o.ID, o.Status, strings.Join(items, ", "))
		if o.Message != "" {
			fmt.Printf("  %q", o.Message)
		}
		fmt.Printf("  expires %s\n", o.ExpiresAt.Local().Format(time.RFC822))
	}
}

func (a *app) notifications(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("notifications", flag.ExitOnError)
	filter := fs.String("filter", notifications.FilterAll, "all or unread")
	read := fs.String("read", "", "Notification id to mark as read")
	readAll := fs.Bool("read-all", false, "Mark every notification as read")
	del := fs.String("delete", "", "Notification id to delete")
	deleteRead := fs.Bool("delete-read", false, "Delete every read notification")
	open := fs.String("open", "", "Notification id to open")
	watch := fs.Bool("watch", false, "Keep running and print new notifications")
	_ = fs.Parse(args)

	if err := a.requireLogin(); err != nil {
		return err
	}

	var center *notifications.Center
	if *watch {
		sc, done, err := a.connectSocket(ctx)
		if err != nil {
			return err
		}
		defer func() { <-done }()
		defer sc.Close()
		center = notifications.NewCenter(a.api, sc, a.toaster, a.session, a.logger)
		defer center.Subscribe()()
	} else {
		center = notifications.NewCenter(a.api, noopBus{}, a.toaster, a.session, a.logger)
	}

	if err := center.Load(ctx, *filter); err != nil {
		return err
	}

	var err error
	switch {
	case *read != "":
		err = center.MarkAsRead(ctx, *read)
	case *readAll:
		err = center.MarkAllAsRead(ctx)
	case *del != "":
		err = center.Delete(ctx, *del)
	case *deleteRead:
		err = center.DeleteAllRead(ctx)
	case *open != "":
		err = a.openNotification(ctx, center, *open)
	}
	if err != nil {
		return err
	}

	printNotifications(center)
	if !*watch {
		return nil
	}
	<-ctx.Done()
	return nil
}

func (a *app) openNotification(ctx context.Context, center *notifications.Center, id string) error {
	for _, n := range center.Items() {
		if n.ID != id {
			continue
		}
		target, err := center.Open(ctx, n)
		if err != nil {
			return err
		}
		if target.Link != "" {
			fmt.Println("Open:", target.Link)
		} else {
			fmt.Printf("Open view %s", target.View)
			if target.Tab != "" {
				fmt.Printf(" (tab %s)", target.Tab)
			}
			fmt.Println()
		}
		return nil
	}
	return fmt.Errorf("notification %s not found", id)
}

func printNotifications(center *notifications.Center) {
	fmt.Printf("%d unread\n", center.UnreadCount())
	for _, n := range center.Items() {
		mark := " "
		if !n.IsRead {
			mark = "*"
		}
		fmt.Printf("%s %s  %-14s %s: %s\n", mark, n.ID, n.Type, n.Title, n.Message)
	}
}

func (a *app) status(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: hubctl status <online|away|busy|dnd>")
	}
	if err := a.requireLogin(); err != nil {
		return err
	}
	sc, _, err := a.connectSocket(ctx)
	if err != nil {
		return err
	}
	defer sc.Close()

	selector := presence.NewStatusSelector(sc, func(s string) {
		a.toaster.Success("Status set to " + s + ".")
	}, a.logger)
	if err := selector.Select(args[0]); err != nil {
		if errors.Is(err, presence.ErrInvalidStatus) {
			return fmt.Errorf("unknown status %q", args[0])
		}
		return err
	}
	return nil
}

func (a *app) online(ctx context.Context) error {
	if err := a.requireLogin(); err != nil {
		return err
	}
	sc, _, err := a.connectSocket(ctx)
	if err != nil {
		return err
	}
	defer sc.Close()

	panel := presence.NewPanel()
	snapshot := make(chan struct{}, 1)
	defer panel.Subscribe(sc)()
	id := sc.On(events.TypePresenceSnapshot, func(events.Event) {
		select {
		case snapshot <- struct{}{}:
		default:
		}
	})
	defer sc.Off(id)

	select {
	case <-snapshot:
	case <-time.After(5 * time.Second):
		return fmt.Errorf("no presence snapshot received")
	case <-ctx.Done():
		return nil
	}
	for _, e := range panel.Entries() {
		fmt.Printf("%-5s %s\n", e.Status, e.Username)
	}
	return nil
}

func (a *app) chat(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("chat", flag.ExitOnError)
	groupFlag := fs.String("group", "", "Group id")
	channelFlag := fs.String("channel", group.GeneralChannelSlug, "Channel slug or id")
	send := fs.String("send", "", "Post this message and exit")
	_ = fs.Parse(args)

	if err := a.requireLogin(); err != nil {
		return err
	}
	groupID, err := uuid.Parse(*groupFlag)
	if err != nil {
		return fmt.Errorf("-group must be a group id")
	}

	var mu sync.Mutex
	printed := map[uuid.UUID]bool{}
	room := chat.NewRoom(a.api, groupID, a.cfg.ChatPollInterval, a.toaster, func(_ uuid.UUID, msgs []group.MessageResponse) {
		mu.Lock()
		defer mu.Unlock()
		for _, m := range msgs {
			if printed[m.ID] {
				continue
			}
			printed[m.ID] = true
			author := m.AuthorID.String()
			if m.Author != nil {
				author = m.Author.Username
			}
			fmt.Printf("[%s] %s: %s\n", m.CreatedAt.Local().Format("15:04"), author, m.Content)
		}
	}, a.logger)
	defer room.Close()

	if _, err := room.LoadChannels(ctx); err != nil {
		return err
	}
	ch, ok := room.ChannelBySlug(*channelFlag)
	if !ok {
		return fmt.Errorf("channel %q not found", *channelFlag)
	}
	_ = a.session.Navigate("groups/" + groupID.String() + "/" + ch.Slug)
	room.Select(ctx, ch.ID)

	if *send != "" {
		room.SetDraft(*send)
		_, err := room.Send(ctx)
		return err
	}
	<-ctx.Done()
	return nil
}

func (a *app) catalog(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: hubctl catalog <weapons|armor|items|enemies|maps> [-search s] [-sort key]")
	}
	path := args[0]
	if _, ok := catalog.KindRoutes[path]; !ok {
		return fmt.Errorf("unknown catalog view %q", path)
	}
	fs := flag.NewFlagSet("catalog", flag.ExitOnError)
	search := fs.String("search", "", "Name filter")
	sortBy := fs.String("sort", "", "Sort key")
	rarity := fs.String("rarity", "", "Rarity filter")
	page := fs.Int("page", 1, "Page number")
	_ = fs.Parse(args[1:])

	entries, pagination, err := a.api.ListCatalog(ctx, path, api.CatalogQuery{
		Search: *search, Sort: *sortBy, Rarity: *rarity, Page: *page,
	})
	if err != nil {
		return err
	}
	_ = a.session.Navigate(path)
	for _, e := range entries {
		fmt.Printf("%-32s %-10s %-12s %6d\n", e.Name, e.Rarity, e.Category, e.Value)
	}
	if pagination != nil {
		fmt.Printf("page %d of %d (%d entries)\n", pagination.CurrentPage, pagination.TotalPages, pagination.TotalItems)
	}
	return nil
}

func (a *app) badges(ctx context.Context) error {
	if err := a.requireLogin(); err != nil {
		return err
	}
	r := badges.NewRefresher(a.api, a.cfg.BadgeRefreshInterval, a.logger)
	r.Run(ctx, func(c badges.Counts) {
		fmt.Printf("%s  notifications: %d  messages: %d\n", c.RefreshedAt.Local().Format("15:04:05"), c.Notifications, c.Messages)
	})
	return nil
}
