package server

import (
	"struggles/internal/featureflags"
	"struggles/internal/models"

	"github.com/gofiber/fiber/v2"
)

// pageData is the view model every page route returns. Viewer is nil for
// anonymous visitors, including those whose cookie no longer resolves.
type pageData struct {
	Page           string       `json:"page"`
	Viewer         *models.User `json:"viewer"`
	SignInRequired bool         `json:"sign_in_required,omitempty"`
	Data           any          `json:"data,omitempty"`
}

// setupPageRoutes registers the page-data routes. /:username matches any
// single segment, so it goes last.
func (s *Server) setupPageRoutes(app *fiber.App) {
	viewer := s.OptionalUser()
	app.Get("/", viewer, s.HomePage)
	app.Get("/login", viewer, s.AuthPage("login"))
	app.Get("/signup", viewer, s.AuthPage("signup"))
	app.Get("/new-story", viewer, s.NewStoryPage)
	app.Get("/projects/:id", viewer, s.ProjectPage)
	app.Get("/messages/new", viewer, s.NewMessagePage)
	app.Get("/messages", viewer, s.MessagesPage)
	app.Get("/teams/new", viewer, s.NewTeamPage)
	app.Get("/teams", viewer, s.TeamsPage)
	app.Get("/settings", viewer, s.SettingsPage)
	app.Get("/:username", viewer, s.ProfilePage)
}

func page(c *fiber.Ctx, name string, data any) error {
	return c.JSON(pageData{Page: name, Viewer: currentUser(c), Data: data})
}

// signInPage answers a protected page whose credential did not resolve.
func signInPage(c *fiber.Ctx, name string) error {
	return c.JSON(pageData{Page: name, SignInRequired: true})
}

// HomePage lists the latest stories.
func (s *Server) HomePage(c *fiber.Ctx) error {
	p := parsePagination(c, 20)
	stories, err := s.storyService.List(c.UserContext(), p.Limit, p.Offset)
	if err != nil {
		return models.Respond(c, err)
	}
	return page(c, "home", fiber.Map{"stories": stories})
}

// AuthPage serves the login and signup forms; signed-in visitors go home.
func (s *Server) AuthPage(name string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if currentUser(c) != nil {
			return c.Redirect("/", fiber.StatusFound)
		}
		return page(c, name, nil)
	}
}

func (s *Server) NewStoryPage(c *fiber.Ctx) error {
	if currentUser(c) == nil {
		return signInPage(c, "new-story")
	}
	return page(c, "new-story", fiber.Map{
		"ai_enabled": s.featureFlags.Enabled(featureflags.AIGeneration, currentUserID(c)),
	})
}

// ProjectPage shows one story.
func (s *Server) ProjectPage(c *fiber.Ctx) error {
	story, err := s.storyService.GetByID(c.UserContext(), c.Params("id"))
	if err != nil {
		return models.Respond(c, err)
	}
	return page(c, "project", fiber.Map{"story": story})
}

// MessagesPage lists the viewer's chats. ?chat= selects one and loads its messages.
func (s *Server) MessagesPage(c *fiber.Ctx) error {
	if currentUser(c) == nil {
		return signInPage(c, "messages")
	}
	ctx := c.UserContext()
	chats, err := s.chatService.ListChats(ctx, currentUserID(c))
	if err != nil {
		return models.Respond(c, err)
	}
	data := fiber.Map{"chats": chats}

	if chatID := c.Query("chat"); chatID != "" {
		chat, err := s.chatService.GetChatForUser(ctx, chatID, currentUserID(c))
		if err != nil {
			return models.Respond(c, err)
		}
		messages, err := s.chatService.ListMessages(ctx, chat.ID)
		if err != nil {
			return models.Respond(c, err)
		}
		data["chat"] = chat
		data["messages"] = messages
	}
	return page(c, "messages", data)
}

// NewMessagePage offers every other member as a chat partner.
func (s *Server) NewMessagePage(c *fiber.Ctx) error {
	if currentUser(c) == nil {
		return signInPage(c, "new-message")
	}
	users, err := s.userService.ListAll(c.UserContext())
	if err != nil {
		return models.Respond(c, err)
	}
	viewerID := currentUserID(c)
	members := make([]models.UserSummary, 0, len(users))
	for _, u := range users {
		if u.ID != viewerID {
			members = append(members, u)
		}
	}
	return page(c, "new-message", fiber.Map{"members": members})
}

func (s *Server) TeamsPage(c *fiber.Ctx) error {
	if currentUser(c) == nil {
		return signInPage(c, "teams")
	}
	ctx := c.UserContext()
	teams, err := s.teamService.List(ctx)
	if err != nil {
		return models.Respond(c, err)
	}
	mine, err := s.teamService.ListForUser(ctx, currentUserID(c))
	if err != nil {
		return models.Respond(c, err)
	}
	return page(c, "teams", fiber.Map{"teams": teams, "my_teams": mine})
}

func (s *Server) NewTeamPage(c *fiber.Ctx) error {
	if currentUser(c) == nil {
		return signInPage(c, "new-team")
	}
	return page(c, "new-team", nil)
}

func (s *Server) SettingsPage(c *fiber.Ctx) error {
	if currentUser(c) == nil {
		return signInPage(c, "settings")
	}
	return page(c, "settings", nil)
}

// ProfilePage shows a member and their stories.
func (s *Server) ProfilePage(c *fiber.Ctx) error {
	profile, err := s.loadProfile(c, c.Params("username"))
	if err != nil {
		return models.Respond(c, err)
	}
	stories, err := s.storyService.ListByAuthorUsername(c.UserContext(), profile.User.Username)
	if err != nil {
		return models.Respond(c, err)
	}
	return page(c, "profile", fiber.Map{"profile": profile, "stories": stories})
}
