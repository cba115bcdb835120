package gateway

// Canned replies. Internal errors never leak provider or stack detail into
// the chat surface; these are the only texts a failure path may send.
const (
	accountErrorReply = "Sorry, I couldn't access your account right now. Please try again in a moment."

	dispatchErrorReply = "Sorry, I couldn't complete that. Please try again."

	authErrorReply = "Sorry, I couldn't authenticate your request. Please try again, and contact support if this keeps happening."

	pleaseLinkReply = "I don't recognize this chat yet. Please link your account first: open your account settings on the web, generate a linking code, and paste it here."

	alreadyLinkedReply = "Your account is already linked — you're all set. Just tell me what you'd like to do."

	deniedReply = "Sorry, that's not something I can help with."

	linkWelcomeReply = `Your account is linked — welcome aboard! 🎉

You can now run automations straight from this chat. Try things like:
- "what's the weather in Berlin"
- "summarize my calendar for tomorrow"

Use /workflows to see everything your plan includes and /usage to check your quota.`

	linkExpiredReply = "That linking code has expired or was already used. Generate a fresh one from your account settings and paste it here."

	linkInvalidReply = "That linking code doesn't look right. Double-check it, or generate a new one from your account settings."

	linkErrorReply = "Sorry, linking didn't work just now. Please try again in a moment."
)
