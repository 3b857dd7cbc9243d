package home

import (
	"strings"

	"evara/pkg/tgui"
)

const (
	cbHelp   = "help_section"
	cbTTS    = "info_tts"
	cbTr     = "info_tr"
	cbID     = "info_id"
	cbGoHome = "go_home"
)

const (
	helpMenuText = "ʜᴇʏ, ᴄʟɪᴄᴋ ʙᴜᴛᴛᴏɴs ʙᴇʟᴏᴡ , ᴛᴏ sᴇᴇ ʜᴏᴡ ᴛᴏ ᴜsᴇ ! ᴛʜɪs ʙᴏᴛ ᴄᴏᴍᴍᴀɴᴅ."
	infoTTSText  = "/tts - ᴡʀɪᴛᴇ ᴀɴʏ ᴛᴇxᴛ, ᴛʜɪs ᴄᴏɴᴠᴇʀᴛ ʏᴏᴜʀ ᴛᴇxᴛ ɪɴᴛᴏ ᴀɪ ᴠᴏɪᴄᴇ"
	infoTrText   = "/tr - ʀᴇᴘʟʏ ᴀɴʏ ᴍᴇssᴀɢᴇ, ɪᴛ ᴄᴏɴᴠᴇʀᴛ ᴛʜᴀᴛ ʟᴀɴɢᴀᴜɢᴇ ɪɴ ᴇɴɢʟɪsʜ"
	infoIDText   = "/id - ɢᴇᴛ ʏᴏᴜʀ ɪᴅ ᴏʀ ʀᴇᴘʟʏ ᴛᴏ ᴜsᴇʀ ᴍᴇssᴀɢᴇ/ᴜsᴇʀɴᴀᴍᴇ"

	welcomeText  = "ᴛʜᴀɴᴋs ғᴏʀ ᴀᴅᴅɪɴɢ ᴍᴇ, ɪ ᴀᴍ ʜᴇʀᴇ, ᴀsᴋ ᴍᴇ ᴀɴʏᴛʜɪɴɢ !\nʙʏ /ask [ʏᴏᴜʀ ǫᴜᴇʀʏ]"
	fallbackText = "◉ Pʟᴇᴀsᴇ ᴜsᴇ /ask [ʏᴏᴜʀ ǫᴜᴇʀʏ ʜᴇʀᴇ] ᴛʜɪs ɪs ᴀ ᴍᴀɪɴ ᴄᴏᴍᴍᴀɴᴅ !"
)

// startCaption greets the user by mention. It is HTML.
func startCaption(name string, userID int64, updatesURL string) string {
	var b strings.Builder
	b.WriteString("Hᴇʏ ᴛʜᴇʀᴇ, ᴅᴇᴀʀ ")
	b.WriteString(tgui.Mention(name, userID).String())
	b.WriteString(" 💖\n")
	b.WriteString("ʜᴏᴘᴇ ᴛᴏᴅᴀʏ ɪs ᴛʀᴇᴀᴛɪɴɢ ʏᴏᴜ ᴡɪᴛʜ ɢʟᴏᴡ, ɢʀᴀᴄᴇ ᴀɴᴅ ɢᴏᴏᴅ ɴᴇᴡs!\n\n")
	b.WriteString("ɪ ᴀᴍ ᴀɪ ʙᴀsᴇᴅ ᴇᴠᴀʀᴀ ᴄʜᴀᴛ ɢᴘᴛ !\n")
	b.WriteString("✦ ᴀsᴋ ᴍᴇ ᴀɴʏᴛʜɪɴɢ ɪɴ ᴍʏ ᴘʀɪᴠᴀᴛᴇ ᴄʜᴀᴛ ᴏʀ ɢʀᴏᴜᴘ ᴜsɪɴɢ /ask [ʏᴏᴜʀ ǫᴜᴇʀʏ ʜᴇʀᴇ].\n")
	b.WriteString("ᴛᴏ sᴇᴇ ᴀʟʟ ᴍʏ ᴄᴏᴍᴍᴀɴᴅs ᴀɴᴅ ғᴇᴀᴛᴜʀᴇs, sɪᴍᴘʟʏ ᴛᴀᴘ ᴛʜᴇ ʜᴇʟᴘ ᴀɴᴅ ᴄᴏᴍᴍᴀɴᴅs ʙᴜᴛᴛᴏɴ ʙᴇʟᴏᴡ!\n\n")
	b.WriteString("ᴘᴏᴡᴇʀᴇᴅ ʙʏ ● ")
	b.WriteString(tgui.Link("ᴇᴠᴀʀᴀ ʙᴏᴛs", updatesURL).String())
	return b.String()
}
