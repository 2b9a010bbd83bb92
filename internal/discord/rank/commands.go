package rank

import "github.com/bwmarrin/discordgo"

var manageGuild int64 = discordgo.PermissionManageServer

// commands is the list of slash commands the Rank module registers
var commands = []*discordgo.ApplicationCommand{
	{
		Name:        "rank",
		Description: "Show a member's engagement points and level",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionUser,
				Name:        "user",
				Description: "Member to look up (defaults to you)",
				Required:    false,
			},
		},
	},
	{
		Name:        "leaderboard",
		Description: "Show the top server members by points",
	},
	{
		Name:        "levels",
		Description: "List this server's level ladder",
	},
	{
		Name:                     "setlevel",
		Description:              "Create or update a custom level",
		DefaultMemberPermissions: &manageGuild,
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionInteger,
				Name:        "rank",
				Description: "Level rank (1 or higher)",
				Required:    true,
			},
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "name",
				Description: "Display name for the level",
				Required:    true,
			},
			{
				Type:        discordgo.ApplicationCommandOptionInteger,
				Name:        "points",
				Description: "Points required to reach the level",
				Required:    true,
			},
		},
	},
	{
		Name:                     "dellevel",
		Description:              "Delete a custom level by rank",
		DefaultMemberPermissions: &manageGuild,
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionInteger,
				Name:        "rank",
				Description: "Level rank to delete",
				Required:    true,
			},
		},
	},
	{
		Name:                     "levelconfig",
		Description:              "Tune points, cooldown and level-up announcements",
		DefaultMemberPermissions: &manageGuild,
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionInteger,
				Name:        "reaction_points",
				Description: "Points granted per qualifying reaction",
				Required:    false,
			},
			{
				Type:        discordgo.ApplicationCommandOptionInteger,
				Name:        "reply_points",
				Description: "Points granted per qualifying reply",
				Required:    false,
			},
			{
				Type:        discordgo.ApplicationCommandOptionInteger,
				Name:        "cooldown",
				Description: "Cooldown in seconds before the same pair re-earns credit",
				Required:    false,
			},
			{
				Type:        discordgo.ApplicationCommandOptionChannel,
				Name:        "announce_channel",
				Description: "Channel for level-up announcements",
				Required:    false,
			},
			{
				Type:        discordgo.ApplicationCommandOptionBoolean,
				Name:        "announce",
				Description: "Post level-ups to the announce channel",
				Required:    false,
			},
			{
				Type:        discordgo.ApplicationCommandOptionBoolean,
				Name:        "dm",
				Description: "DM members on level-up",
				Required:    false,
			},
		},
	},
}
