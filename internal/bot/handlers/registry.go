package handlers

import (
	tgbot "github.com/go-telegram/bot"
)

// RegisteredHandler represents a handler with its registration metadata and
// middleware chain.
type RegisteredHandler struct {
	HandlerType tgbot.HandlerType
	Pattern     string
	Handler     tgbot.HandlerFunc
	Middleware  []tgbot.Middleware
	MatchType   tgbot.MatchType
}

// RegisterShiftCommands returns the handler map for the shift bot. Photo
// messages are routed through the default handler registered in main, not
// through this map.
func RegisterShiftCommands(deps HandlerDeps) map[string]RegisteredHandler {
	handlers := make(map[string]RegisteredHandler)

	handlers["/start"] = RegisteredHandler{
		HandlerType: tgbot.HandlerTypeMessageText,
		Pattern:     "start",
		Handler:     NewStartHandler(deps, shiftWelcome, false),
		MatchType:   tgbot.MatchTypeCommandStartOnly,
	}
	handlers["/report"] = RegisteredHandler{
		HandlerType: tgbot.HandlerTypeMessageText,
		Pattern:     "report",
		Handler:     NewReportHandler(deps),
		MatchType:   tgbot.MatchTypeCommandStartOnly,
	}

	managerMiddleware := []tgbot.Middleware{ManagerOnly(deps)}

	handlers["/settings"] = RegisteredHandler{
		HandlerType: tgbot.HandlerTypeMessageText,
		Pattern:     "settings",
		Handler:     NewSettingsHandler(deps),
		MatchType:   tgbot.MatchTypeCommandStartOnly,
		Middleware:  managerMiddleware,
	}
	handlers["/authorize"] = RegisteredHandler{
		HandlerType: tgbot.HandlerTypeMessageText,
		Pattern:     "authorize",
		Handler:     NewAuthorizeHandler(deps),
		MatchType:   tgbot.MatchTypeCommandStartOnly,
		Middleware:  managerMiddleware,
	}

	handlers["checkin_callback"] = RegisteredHandler{
		HandlerType: tgbot.HandlerTypeCallbackQueryData,
		Pattern:     checkinCallbackPrefix,
		Handler:     NewCheckinCallbackHandler(deps),
		MatchType:   tgbot.MatchTypePrefix,
	}

	return handlers
}

// RegisterWishlistCommands returns the handler map for the wishlist bot.
func RegisterWishlistCommands(deps HandlerDeps) map[string]RegisteredHandler {
	handlers := make(map[string]RegisteredHandler)

	handlers["/start"] = RegisteredHandler{
		HandlerType: tgbot.HandlerTypeMessageText,
		Pattern:     "start",
		Handler:     NewStartHandler(deps, wishlistWelcome, true),
		MatchType:   tgbot.MatchTypeCommandStartOnly,
	}
	handlers["/add"] = RegisteredHandler{
		HandlerType: tgbot.HandlerTypeMessageText,
		Pattern:     "add",
		Handler:     NewWishAddHandler(deps),
		MatchType:   tgbot.MatchTypeCommandStartOnly,
	}
	handlers["/list"] = RegisteredHandler{
		HandlerType: tgbot.HandlerTypeMessageText,
		Pattern:     "list",
		Handler:     NewWishListHandler(deps),
		MatchType:   tgbot.MatchTypeCommandStartOnly,
	}
	handlers["/done"] = RegisteredHandler{
		HandlerType: tgbot.HandlerTypeMessageText,
		Pattern:     "done",
		Handler:     NewWishDoneHandler(deps),
		MatchType:   tgbot.MatchTypeCommandStartOnly,
	}

	return handlers
}
