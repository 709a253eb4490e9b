// Package deck models Stream Deck macro pads: the Deck, its fixed grid of
// Buttons and the actions bound to each button.
//
// # Architecture
//
//	┌──────────────────────────────────────────────────────────────┐
//	│                           Registry                            │
//	│               serial → *Deck (one instance each)              │
//	└───────────────┬──────────────────────────────────────────────┘
//	                │
//	┌───────────────▼──────────┐   Handle    ┌─────────────────────┐
//	│           Deck           │────────────▶│  HID / virtual deck │
//	│ state: unbound/closed/open│            └─────────────────────┘
//	│ buttons[0 .. cols*rows)  │
//	└───────────────┬──────────┘
//	                │ Store
//	┌───────────────▼──────────┐
//	│     SQLiteRepository     │  deck ─┬─ button ─┬─ action
//	│     (repository.go)      │        (ON DELETE CASCADE)
//	└──────────────────────────┘
//
// A Deck starts unbound. Binding a hardware Handle moves it to closed;
// Open claims the handle. Update and the button mutators open the handle
// only for as long as they need it and restore the state they found.
//
// # Usage
//
//	repo := deck.NewSQLiteRepository(db.DB)
//	cfg := deck.Config{Store: repo, Renderer: renderer, Actions: factory}
//
//	d, err := repo.Load(ctx, serial, cfg)
//	if errors.Is(err, deck.ErrNotFound) {
//	    cfg.Serial, cfg.Kind = serial, deck.KindXL
//	    if d, err = deck.New(cfg); err == nil {
//	        err = repo.Create(ctx, d)
//	    }
//	}
//
//	b, _ := d.Button(3)
//	b.SetText(ctx, "Mute")
//	b.AddAction(ctx, action.TypeMultiKey, "CTRL;SHIFT;m")
package deck
