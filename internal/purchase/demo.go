package purchase

import "time"

// DemoProfile is the profile used for demo mode on a single device. Its
// ledger is ephemeral.
func DemoProfile() UserProfile {
	return UserProfile{
		ID:          "demo-user",
		DisplayName: "Demo User",
		Email:       "demo@example.com",
		Ephemeral:   true,
	}
}

// NewDemoProfile returns a demo profile with an id of its own, for servers
// where every anonymous caller needs a separate ephemeral ledger.
func NewDemoProfile() UserProfile {
	p := DemoProfile()
	p.ID = "demo-" + NewID()

	return p
}

// DemoPurchases returns the records a fresh demo ledger is seeded with.
func DemoPurchases() []Purchase {
	return []Purchase{
		{
			ID:       "1",
			Name:     "Minecraft",
			Icon:     "https://play-lh.googleusercontent.com/VSwHQjcAttxsLE47RuS4PqpC4LT7lCoSjE7Hx5AW_yCxtDvcnsHHvm5CTuL5BPN-uRTP=w240-h480-rw",
			Price:    860,
			Currency: DefaultCurrency,
			Date:     time.Date(2023, 10, 15, 10, 30, 0, 0, time.UTC),
			Category: CategoryGame,
			Store:    StoreGooglePlay,
		},
		{
			ID:       "2",
			Name:     "Google One (100GB)",
			Price:    250,
			Currency: DefaultCurrency,
			Date:     time.Date(2023, 11, 1, 9, 0, 0, 0, time.UTC),
			Category: CategorySubscription,
			Store:    StoreGooglePlay,
		},
		{
			ID:       "3",
			Name:     "Monster Strike - Orb Pack",
			Price:    4800,
			Currency: DefaultCurrency,
			Date:     time.Date(2023, 11, 5, 20, 15, 0, 0, time.UTC),
			Category: CategoryInApp,
			Store:    StoreGooglePlay,
		},
		{
			ID:       "4",
			Name:     "Nova Launcher Prime",
			Price:    499,
			Currency: DefaultCurrency,
			Date:     time.Date(2022, 5, 20, 14, 0, 0, 0, time.UTC),
			Category: CategoryApp,
			Store:    StoreGooglePlay,
		},
	}
}
