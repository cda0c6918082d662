// ABOUTME: Fixed topic namespace shared with the peer (wire contract).
// ABOUTME: These names are not configurable per instance.

package relay

const (
	// TopicActivation carries raw button-press notices from the device.
	TopicActivation = "/esp32_gpio"

	// TopicCommands is the inbound command topic. Reserved: subscribed but
	// currently a no-op.
	TopicCommands = "/esp32_commands"

	// TopicPeerEcho is where the peer sends conversational text back for the
	// device to continue with.
	TopicPeerEcho = "/client_gpt"

	// TopicReplies is where the device publishes completion replies.
	TopicReplies = "/esp_gpt_out"
)
