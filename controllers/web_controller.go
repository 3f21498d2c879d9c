package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"paylio/middleware"
	"paylio/models"
	"paylio/services"
	"paylio/utils"

	"github.com/gin-gonic/gin"
)

// WebController обрабатывает HTML-страницы сайта
type WebController struct {
	users    *services.UserService
	accounts *services.AccountService
	cards    *services.CardService
	tokens   *services.TokenService
	siteURL  string
}

// NewWebController создает новый экземпляр WebController
func NewWebController(users *services.UserService, accounts *services.AccountService, cards *services.CardService, tokens *services.TokenService, siteURL string) *WebController {
	return &WebController{
		users:    users,
		accounts: accounts,
		cards:    cards,
		tokens:   tokens,
		siteURL:  siteURL,
	}
}

// render дополняет данные шаблона текущим пользователем и flash-сообщением
func (wc *WebController) render(c *gin.Context, status int, name string, data gin.H) {
	if data == nil {
		data = gin.H{}
	}
	data["User"] = middleware.User(c)
	data["Flash"] = middleware.PopFlash(c)
	c.HTML(status, name, data)
}

// formErrors превращает ошибку сервиса в сообщения для шаблона
func formErrors(err error) map[string]string {
	var verr *services.ValidationError
	if errors.As(err, &verr) {
		return verr.Fields
	}
	return map[string]string{"__all__": err.Error()}
}

func (wc *WebController) Index(c *gin.Context) {
	wc.render(c, http.StatusOK, "index.html", gin.H{"Title": "Home"})
}

func (wc *WebController) About(c *gin.Context) {
	wc.render(c, http.StatusOK, "about.html", gin.H{"Title": "About"})
}

func (wc *WebController) Contact(c *gin.Context) {
	wc.render(c, http.StatusOK, "contact.html", gin.H{"Title": "Contact"})
}

// NotFound отдает страницу 404
func (wc *WebController) NotFound(c *gin.Context) {
	wc.render(c, http.StatusNotFound, "404.html", gin.H{"Title": "Not found"})
}

// Sitemap отдает sitemap.xml публичных страниц
func (wc *WebController) Sitemap(c *gin.Context) {
	data, err := services.BuildSitemap(wc.siteURL, services.PublicPages, time.Now())
	if err != nil {
		_ = c.Error(err)
		c.String(http.StatusInternalServerError, "Internal server error")
		return
	}
	c.Data(http.StatusOK, "application/xml; charset=utf-8", data)
}

// SignUpPage показывает форму регистрации
func (wc *WebController) SignUpPage(c *gin.Context) {
	if middleware.User(c) != nil {
		middleware.SetFlash(c, middleware.FlashWarning, "You are already logged in.")
		c.Redirect(http.StatusFound, "/account/account/")
		return
	}
	wc.render(c, http.StatusOK, "sign-up.html", gin.H{"Title": "Sign up", "Form": services.SignUpForm{}})
}

// SignUp регистрирует пользователя и сразу открывает сессию
func (wc *WebController) SignUp(c *gin.Context) {
	if middleware.User(c) != nil {
		middleware.SetFlash(c, middleware.FlashWarning, "You are already logged in.")
		c.Redirect(http.StatusFound, "/account/account/")
		return
	}

	var form services.SignUpForm
	if err := c.ShouldBind(&form); err != nil {
		wc.render(c, http.StatusBadRequest, "sign-up.html", gin.H{"Title": "Sign up", "Form": form, "Errors": formErrors(err)})
		return
	}

	user, err := wc.users.Register(form)
	if err != nil {
		form.Password1, form.Password2 = "", ""
		wc.render(c, http.StatusOK, "sign-up.html", gin.H{"Title": "Sign up", "Form": form, "Errors": formErrors(err)})
		return
	}

	if !wc.startSession(c, user) {
		return
	}
	middleware.SetFlash(c, middleware.FlashSuccess, "Hey "+user.Username+", your account was created successfully.")
	c.Redirect(http.StatusFound, "/account/account/")
}

// SignInPage показывает форму входа
func (wc *WebController) SignInPage(c *gin.Context) {
	if middleware.User(c) != nil {
		middleware.SetFlash(c, middleware.FlashWarning, "You are already logged In")
		c.Redirect(http.StatusFound, "/account/account/")
		return
	}
	wc.render(c, http.StatusOK, "sign-in.html", gin.H{"Title": "Sign in", "Identifier": ""})
}

// SignIn проверяет логин или email и пароль
func (wc *WebController) SignIn(c *gin.Context) {
	identifier := c.PostForm("username")
	if identifier == "" {
		identifier = c.PostForm("email")
	}

	user, err := wc.users.Authenticate(identifier, c.PostForm("password"))
	if err != nil {
		if !errors.Is(err, services.ErrInvalidCredentials) {
			_ = c.Error(err)
		}
		middleware.SetFlash(c, middleware.FlashWarning, "Username/email or password does not exist")
		c.Redirect(http.StatusFound, "/user/sign-in/")
		return
	}

	if !wc.startSession(c, user) {
		return
	}
	middleware.ResetRateLimit(c)
	middleware.SetFlash(c, middleware.FlashSuccess, "You are logged.")
	c.Redirect(http.StatusFound, "/account/account/")
}

// SignOut закрывает сессию
func (wc *WebController) SignOut(c *gin.Context) {
	middleware.ClearSession(c)
	middleware.SetFlash(c, middleware.FlashSuccess, "You have been logged out.")
	c.Redirect(http.StatusFound, "/user/sign-in/")
}

func (wc *WebController) startSession(c *gin.Context, user *models.User) bool {
	token, expires, err := wc.tokens.Issue(user)
	if err != nil {
		_ = c.Error(err)
		c.String(http.StatusInternalServerError, "Internal server error")
		return false
	}
	middleware.SetSession(c, token, expires)
	utils.LogInfo("Пользователь %s вошел в систему", user.Email)
	return true
}

// Dashboard показывает личный кабинет
func (wc *WebController) Dashboard(c *gin.Context) {
	wc.renderDashboard(c, http.StatusOK, services.CardForm{}, nil)
}

// AddCard добавляет карту из формы на странице кабинета
func (wc *WebController) AddCard(c *gin.Context) {
	var form services.CardForm
	if err := c.ShouldBind(&form); err != nil {
		wc.renderDashboard(c, http.StatusBadRequest, form, map[string]string{"__all__": "Invalid card details"})
		return
	}

	if _, err := wc.cards.AddCard(middleware.User(c), form); err != nil {
		form.Number, form.CVV = "", ""
		wc.renderDashboard(c, http.StatusOK, form, formErrors(err))
		return
	}
	middleware.SetFlash(c, middleware.FlashSuccess, "Card Added Successfully.")
	c.Redirect(http.StatusFound, "/account/")
}

func (wc *WebController) renderDashboard(c *gin.Context, status int, form services.CardForm, formErrs map[string]string) {
	dashboard, err := wc.accounts.Dashboard(middleware.User(c))
	if errors.Is(err, services.ErrNotFound) {
		wc.NotFound(c)
		return
	}
	if err != nil {
		_ = c.Error(err)
		c.String(http.StatusInternalServerError, "Internal server error")
		return
	}

	wc.render(c, status, "dashboard.html", gin.H{
		"Title":     "Dashboard",
		"Dashboard": dashboard,
		"CardForm":  form,
		"Errors":    formErrs,
		"KYCNotice": dashboard.KYC == nil,
	})
}

// Account показывает сведения о счете
func (wc *WebController) Account(c *gin.Context) {
	dashboard, err := wc.accounts.Dashboard(middleware.User(c))
	if errors.Is(err, services.ErrNotFound) {
		wc.NotFound(c)
		return
	}
	if err != nil {
		_ = c.Error(err)
		c.String(http.StatusInternalServerError, "Internal server error")
		return
	}
	wc.render(c, http.StatusOK, "account.html", gin.H{"Title": "Account", "Dashboard": dashboard})
}

// KYCPage показывает анкету KYC, заполненную текущими данными
func (wc *WebController) KYCPage(c *gin.Context) {
	user := middleware.User(c)
	kyc, err := wc.accounts.FindKYC(user.ID)
	if err != nil {
		_ = c.Error(err)
		c.String(http.StatusInternalServerError, "Internal server error")
		return
	}

	form := services.KYCForm{}
	if kyc != nil {
		form = services.KYCForm{
			FullName:      kyc.FullName,
			Gender:        kyc.Gender,
			MaritalStatus: kyc.MaritalStatus,
			IdentityType:  kyc.IdentityType,
			DateOfBirth:   kyc.DateOfBirth.Format("2006-01-02"),
			Country:       kyc.Country,
			State:         kyc.State,
			City:          kyc.City,
			Mobile:        kyc.Mobile,
			Fax:           kyc.Fax,
		}
	}
	wc.renderKYC(c, http.StatusOK, form, nil)
}

// KYCSubmit сохраняет анкету KYC
func (wc *WebController) KYCSubmit(c *gin.Context) {
	var form services.KYCForm
	if err := c.ShouldBind(&form); err != nil {
		wc.renderKYC(c, http.StatusBadRequest, form, formErrors(err))
		return
	}

	if _, err := wc.accounts.SubmitKYC(middleware.User(c), form); err != nil {
		var verr *services.ValidationError
		if !errors.As(err, &verr) {
			_ = c.Error(err)
		}
		wc.renderKYC(c, http.StatusOK, form, formErrors(err))
		return
	}
	middleware.SetFlash(c, middleware.FlashSuccess, "KYC Form submitted successfully, In review now.")
	c.Redirect(http.StatusFound, "/account/account/")
}

func (wc *WebController) renderKYC(c *gin.Context, status int, form services.KYCForm, formErrs map[string]string) {
	wc.render(c, status, "kyc-form.html", gin.H{
		"Title":         "KYC registration",
		"Form":          form,
		"Errors":        formErrs,
		"Genders":       models.Genders,
		"MaritalStatus": models.MaritalStatus,
		"IdentityTypes": models.IdentityTypes,
	})
}

// AdminViewUser показывает суперпользователю кабинет любого пользователя.
// Для остальных страница не существует.
func (wc *WebController) AdminViewUser(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		wc.NotFound(c)
		return
	}

	view, err := wc.accounts.AdminView(middleware.User(c), uint(id))
	if errors.Is(err, services.ErrNotFound) {
		wc.NotFound(c)
		return
	}
	if err != nil {
		_ = c.Error(err)
		c.String(http.StatusInternalServerError, "Internal server error")
		return
	}
	wc.render(c, http.StatusOK, "admin-view.html", gin.H{"Title": view.ViewedUser.Username, "View": view})
}
