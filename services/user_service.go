package services

import (
	"errors"
	"fmt"
	"strings"

	"paylio/database"
	"paylio/models"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type UserService struct {
	db       *database.Database
	validate *validator.Validate
}

// UpsertUserParams описывает пользователя для идемпотентного создания по email.
// Все поля, кроме Email, применяются только при создании.
type UpsertUserParams struct {
	Email       string
	Username    string
	Password    string
	FirstName   string
	LastName    string
	IsStaff     bool
	IsSuperuser bool
}

// SignUpForm форма регистрации
type SignUpForm struct {
	Username  string `form:"username" json:"username" validate:"required,min=3,max=100"`
	Email     string `form:"email" json:"email" validate:"required,email,max=100"`
	Password1 string `form:"password1" json:"password1" validate:"required,min=8,password"`
	Password2 string `form:"password2" json:"password2" validate:"required,eqfield=Password1"`
}

type UserDTO struct {
	ID          uint   `json:"id"`
	Username    string `json:"username"`
	Email       string `json:"email"`
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	IsStaff     bool   `json:"isStaff"`
	IsSuperuser bool   `json:"isSuperuser"`
}

func NewUserService(db *database.Database) *UserService {
	return &UserService{db: db, validate: newValidator()}
}

// ToUserDTO преобразует модель пользователя в DTO для ответа
func ToUserDTO(user *models.User) UserDTO {
	return UserDTO{
		ID:          user.ID,
		Username:    user.Username,
		Email:       user.Email,
		FirstName:   user.FirstName,
		LastName:    user.LastName,
		IsStaff:     user.IsStaff,
		IsSuperuser: user.IsSuperuser,
	}
}

// UpsertUser возвращает пользователя с данным email или создает его.
// Пароль хешируется только при создании; повторный вызов ничего не меняет.
func (s *UserService) UpsertUser(p UpsertUserParams) (*models.User, bool, error) {
	email := strings.TrimSpace(p.Email)
	if email == "" {
		return nil, false, fieldError("email", "поле email обязательно")
	}

	user, err := s.db.GetUserByEmail(email)
	if err == nil {
		return user, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, fmt.Errorf("ошибка при поиске пользователя: %v", err)
	}

	username := strings.TrimSpace(p.Username)
	if username == "" {
		username = emailLocalPart(email)
	}

	hashedPassword, err := hashPassword(p.Password)
	if err != nil {
		return nil, false, err
	}

	user = &models.User{
		Username:    username,
		Email:       email,
		FirstName:   p.FirstName,
		LastName:    p.LastName,
		Password:    hashedPassword,
		IsStaff:     p.IsStaff,
		IsSuperuser: p.IsSuperuser,
		IsActive:    true,
	}
	if err := s.db.CreateUser(user); err != nil {
		return nil, false, fmt.Errorf("ошибка при создании пользователя %s: %v", email, err)
	}
	return user, true, nil
}

// EnsureAccount возвращает счет пользователя, создавая его со значениями по умолчанию
func (s *UserService) EnsureAccount(user *models.User) (*models.Account, bool, error) {
	return s.EnsureAccountWithDefaults(user, models.Account{})
}

// EnsureAccountWithDefaults как EnsureAccount, но defaults применяются только при создании
func (s *UserService) EnsureAccountWithDefaults(user *models.User, defaults models.Account) (*models.Account, bool, error) {
	var account models.Account
	result := s.db.DB.Where(models.Account{UserID: user.ID}).Attrs(defaults).FirstOrCreate(&account)
	if result.Error != nil {
		return nil, false, fmt.Errorf("ошибка при создании счета: %v", result.Error)
	}
	return &account, result.RowsAffected > 0, nil
}

// PromoteSuperuser выдает права сотрудника и суперпользователя; пароль меняется, если задан
func (s *UserService) PromoteSuperuser(user *models.User, password string) (bool, error) {
	updated := false
	if !user.IsSuperuser || !user.IsStaff {
		user.IsSuperuser = true
		user.IsStaff = true
		updated = true
	}
	if password != "" {
		hashedPassword, err := hashPassword(password)
		if err != nil {
			return false, err
		}
		user.Password = hashedPassword
		updated = true
	}
	if !updated {
		return false, nil
	}
	if err := s.db.DB.Save(user).Error; err != nil {
		return false, fmt.Errorf("ошибка при обновлении пользователя: %v", err)
	}
	return true, nil
}

// EnsureSuperuser создает суперпользователя или обновляет права и пароль существующего
func (s *UserService) EnsureSuperuser(email, username, password string) (*models.User, bool, error) {
	user, created, err := s.UpsertUser(UpsertUserParams{
		Email:       email,
		Username:    username,
		Password:    password,
		IsStaff:     true,
		IsSuperuser: true,
	})
	if err != nil {
		return nil, false, err
	}
	if !created {
		if _, err := s.PromoteSuperuser(user, password); err != nil {
			return nil, false, err
		}
	}
	if _, _, err := s.EnsureAccount(user); err != nil {
		return nil, false, err
	}
	return user, created, nil
}

// SetSuperuserPassword меняет пароль суперпользователя; ErrNotFound, если такого нет
func (s *UserService) SetSuperuserPassword(email, password string) error {
	var user models.User
	err := s.db.DB.Where("LOWER(TRIM(email)) = LOWER(TRIM(?)) AND is_superuser = ?", email, true).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("ошибка при поиске суперпользователя: %v", err)
	}

	hashedPassword, err := hashPassword(password)
	if err != nil {
		return err
	}
	return s.db.DB.Model(&user).Update("password", hashedPassword).Error
}

// ListSuperusers возвращает суперпользователей
func (s *UserService) ListSuperusers() ([]models.User, error) {
	return s.db.ListSuperusers()
}

// ListStaff возвращает сотрудников
func (s *UserService) ListStaff() ([]models.User, error) {
	return s.db.ListStaff()
}

// FindByID ищет пользователя по ID
func (s *UserService) FindByID(id uint) (*models.User, error) {
	user, err := s.db.GetUserByID(id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

// Register создает пользователя и его счет по форме регистрации
func (s *UserService) Register(form SignUpForm) (*models.User, error) {
	form.Username = strings.TrimSpace(form.Username)
	form.Email = strings.TrimSpace(form.Email)
	if err := validateStruct(s.validate, form); err != nil {
		return nil, err
	}

	if _, err := s.db.GetUserByUsername(form.Username); err == nil {
		return nil, fieldError("username", "user with this username already exists")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if _, err := s.db.GetUserByEmail(form.Email); err == nil {
		return nil, fieldError("email", "user with this email already exists")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	user, _, err := s.UpsertUser(UpsertUserParams{
		Email:    form.Email,
		Username: form.Username,
		Password: form.Password1,
	})
	if err != nil {
		return nil, err
	}
	if _, _, err := s.EnsureAccount(user); err != nil {
		return nil, err
	}
	return user, nil
}

// Authenticate проверяет учетные данные. Идентификатор сначала ищется как логин,
// затем как email.
func (s *UserService) Authenticate(identifier, password string) (*models.User, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	user, err := s.db.GetUserByUsername(identifier)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		user, err = s.db.GetUserByEmail(identifier)
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	if !user.IsActive {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// hashPassword хеширует пароль bcrypt
func hashPassword(password string) (string, error) {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("ошибка хеширования пароля: %v", err)
	}
	return string(hashedPassword), nil
}

// emailLocalPart возвращает часть email до @
func emailLocalPart(email string) string {
	if i := strings.Index(email, "@"); i > 0 {
		return email[:i]
	}
	return email
}
