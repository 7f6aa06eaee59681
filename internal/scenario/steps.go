package scenario

import (
	"github.com/copyleftdev/sablcheck/internal/browser"
	"github.com/copyleftdev/sablcheck/internal/locator"
)

func target(d locator.Descriptor) *locator.Descriptor {
	return &d
}

func Navigate(url string, until browser.LoadState) Step {
	return Step{Action: ActionNavigate, Value: url, Wait: Wait{Until: until}}
}

func Fill(d locator.Descriptor, value string) Step {
	return Step{Action: ActionFill, Target: target(d), Value: value}
}

func Click(d locator.Descriptor) Step {
	return Step{Action: ActionClick, Target: target(d)}
}

func Check(d locator.Descriptor) Step {
	return Step{Action: ActionCheck, Target: target(d)}
}

func Upload(d locator.Descriptor, files ...string) Step {
	return Step{Action: ActionUpload, Target: target(d), Files: files}
}

func Scroll(d locator.Descriptor) Step {
	return Step{Action: ActionScroll, Target: target(d)}
}

func ExpectVisible(d locator.Descriptor) Step {
	return Step{Action: ActionExpectVisible, Target: target(d)}
}

func ExpectHidden(d locator.Descriptor) Step {
	return Step{Action: ActionExpectHidden, Target: target(d)}
}

// ExpectText waits for text to be rendered anywhere on the page.
func ExpectText(text string) Step {
	return Step{Action: ActionExpectText, Value: text}
}

func Screenshot(note string) Step {
	return Step{Action: ActionScreenshot, Note: note}
}

// DefaultAdminPath is where {{admin.path}} points when target.adminPath is unset.
const DefaultAdminPath = "/admin"

// Login signs into the admin panel with the configured credentials.
func Login() []Step {
	return []Step{
		Navigate("{{admin.path}}", browser.LoadStateLoad),
		Fill(locator.Label("Email"), "{{admin.email}}"),
		Fill(locator.Label("Password"), "{{admin.password}}"),
		Click(locator.Role("button", "Login")),
		ExpectText("Admin Panel"),
	}
}

// OpenTab switches the admin panel to one of its management tabs.
func OpenTab(name string) []Step {
	return []Step{Click(locator.Role("tab", name))}
}

// Winner is the content of the "Manage Winners" form.
type Winner struct {
	Name       string
	RollNumber string
	Event      string
	Date       string
	Year       string
	Photo      string
	ThisWeek   bool
}

func SubmitWinnerForm(w Winner) []Step {
	steps := []Step{
		Fill(locator.Label("Name"), w.Name),
		Fill(locator.Label("Roll Number"), w.RollNumber),
		Fill(locator.Label("Event"), w.Event),
		Fill(locator.Label("Date"), w.Date),
		Fill(locator.Label("Year"), w.Year),
	}
	if w.Photo != "" {
		steps = append(steps, Upload(locator.Label("Photo"), w.Photo))
	}
	if w.ThisWeek {
		steps = append(steps, Check(locator.Label("This Week's Winner")))
	}
	return append(steps, Click(locator.Role("button", "Add Winner")))
}

// Activity is the content of the "Manage Activities" form.
type Activity struct {
	Name        string
	Date        string
	Description string
	Details     string
	Poster      string
	Photos      []string
}

func SubmitActivityForm(a Activity) []Step {
	steps := []Step{
		Fill(locator.Label("Name"), a.Name),
		Fill(locator.Label("Date"), a.Date),
		Fill(locator.Label("Description"), a.Description),
		Fill(locator.Label("Details"), a.Details),
	}
	if a.Poster != "" {
		steps = append(steps, Upload(locator.Label("Poster"), a.Poster))
	}
	if len(a.Photos) > 0 {
		steps = append(steps, Upload(locator.Label("Activity Photos"), a.Photos...))
	}
	return append(steps, Click(locator.Role("button", "Add Activity")))
}

func SubmitGalleryForm(image, caption string) []Step {
	return []Step{
		Upload(locator.Label("Image"), image),
		Fill(locator.Label("Caption"), caption),
		Click(locator.Role("button", "Add Image")),
	}
}

// EditFirst opens the first row's edit form, rewrites one field and saves.
func EditFirst(field locator.Descriptor, value, saveButton string) []Step {
	return []Step{
		Click(locator.Role("button", "Edit").FirstMatch()),
		Fill(field, value),
		Click(locator.Role("button", saveButton)),
	}
}

func DeleteFirst() []Step {
	return []Step{Click(locator.Role("button", "Delete").FirstMatch())}
}

// Flatten concatenates step groups into one ordered list.
func Flatten(groups ...[]Step) []Step {
	var out []Step
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}
