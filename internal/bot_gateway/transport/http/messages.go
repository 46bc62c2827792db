package http

import (
	"fmt"

	"github.com/AlexandrGonin/eatprayit-tgbot/internal/access_service/domain"
)

// Chat message rendering. The access controller only returns outcome
// descriptors; all user-facing text lives here, in the adapter.

const (
	msgGenericError = "❌ Something went wrong. Please try again later."

	msgRegisterFirst = "❌ Use /start to register first."

	msgHelp = `🤖 Available commands:

/start - Main menu
/status - Your status and coins
/referral - Get your referral link
/help - Show this message

🎯 How it works:
1. Get a referral link from a friend
2. Open it and press Start to unlock the Mini App
3. Use /referral to get your own link
4. Earn +1 coin for every friend who joins

📱 The Mini App is available only via referral links!`

	msgUnknownText = "Use /help to see the available commands."
)

func renderOutcome(outcome *domain.Outcome, firstName string) string {
	switch outcome.Kind {
	case domain.OutcomeWelcomed:
		return fmt.Sprintf("🎉 Welcome, %s!\n\n"+
			"✅ You now have access to the Mini App!\n\n"+
			"💰 Your coins: %d\n"+
			"🎯 Your referral link:\n%s\n\n"+
			"Share it with friends and earn +1 coin for each one!",
			outcome.Principal.DisplayName(), outcome.Principal.Coins, outcome.Link)

	case domain.OutcomeReturning:
		return fmt.Sprintf("👋 Welcome back, %s!\n\n"+
			"✅ You have access to the Mini App!\n\n"+
			"💰 Your coins: %d\n"+
			"👥 Your referrals: %d\n\n"+
			"🎯 Your referral link:\n%s\n\n"+
			"Share it with friends and earn +1 coin for each one!",
			outcome.Principal.DisplayName(), outcome.Principal.Coins,
			outcome.Principal.ReferralCount, outcome.Link)

	case domain.OutcomeAlreadyRegistered:
		return "👋 You are already registered, but the Mini App is not unlocked yet.\n\n" +
			"Referral links cannot be redeemed by registered accounts. " +
			"Send /start without a link to see your options."

	case domain.OutcomeInvalidCode:
		return "❌ This referral link is not valid.\n\n" +
			"🔑 Ask a friend who already has access for a fresh link."

	case domain.OutcomeDenied:
		fallthrough
	default:
		return fmt.Sprintf("👋 Hi, %s!\n\n"+
			"❌ You need a referral link to access the Mini App.\n\n"+
			"🔑 Ask a friend or an administrator for one.\n\n"+
			"📋 Commands:\n/status - Check your status\n/help - Help", firstName)
	}
}

func renderStatus(view *domain.StatusView) string {
	p := view.Principal
	msg := "📊 Your status:\n\n"
	if p.IsActive {
		msg += "✅ You have access to the Mini App\n\n"
	} else {
		msg += "❌ You don't have access to the Mini App yet\n\n" +
			"🔑 You need a referral link from a friend\n\n"
	}
	msg += fmt.Sprintf("💰 Coins: %d\n👥 Referrals: %d\n", p.Coins, p.ReferralCount)
	if view.Link != "" {
		msg += fmt.Sprintf("\n🔗 Your referral link:\n%s\n\nInvite friends and earn +1 coin for each one!", view.Link)
	}
	return msg
}

func renderReferralLink(link string) string {
	return fmt.Sprintf("🎯 Your referral link:\n\n%s\n\n"+
		"Invite friends and earn +1 coin for each one!\n\n"+
		"Your friends get Mini App access as soon as they register through your link!", link)
}

func renderReferralDenied() string {
	return "❌ You don't have access to the Mini App.\n\n" +
		"Get access through a friend's referral link first, then you'll receive your own."
}
