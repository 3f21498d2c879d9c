package services

import (
	"fmt"
	"strings"
	"time"

	"paylio/config"
	"paylio/database"
	"paylio/models"
	"paylio/utils"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// CardForm представляет данные формы добавления карты
type CardForm struct {
	Name     string `form:"name" json:"name" validate:"required,max=100"`
	Number   string `form:"number" json:"number" validate:"required,numeric,min=12,max=19"`
	Month    int    `form:"month" json:"month" validate:"required,gte=1,lte=12"`
	Year     int    `form:"year" json:"year" validate:"required,gte=2000,lte=2100"`
	CVV      string `form:"cvv" json:"cvv" validate:"required,numeric,min=3,max=4"`
	Amount   string `form:"amount" json:"amount"`
	CardType string `form:"card_type" json:"card_type" validate:"required,oneof=master visa verve"`
}

// CardResponseDTO представляет данные карты для ответа
type CardResponseDTO struct {
	ID         uint   `json:"id"`
	CardID     string `json:"card_id"`
	Number     string `json:"number"`
	Holder     string `json:"holder"`
	CVV        string `json:"cvv"`
	Expiration string `json:"expiration"`
	CardType   string `json:"card_type"`
	Amount     string `json:"amount"`
	CreatedAt  string `json:"created_at"`
}

// CardService предоставляет методы для работы с картами
type CardService struct {
	db        *database.Database
	hmacKey   []byte
	validator *validator.Validate
	now       func() time.Time
}

// NewCardService создает новый экземпляр CardService
func NewCardService(db *database.Database, cfg *config.Config) *CardService {
	return &CardService{
		db:        db,
		hmacKey:   []byte(cfg.CardHMACKey),
		validator: newValidator(),
		now:       time.Now,
	}
}

// AddCard сохраняет карту пользователя и создает уведомление "Added Credit Card"
func (s *CardService) AddCard(user *models.User, form CardForm) (card *models.CreditCard, err error) {
	defer func(start time.Time) { utils.LogOperation("AddCard", start, err) }(time.Now())

	form.Number = strings.ReplaceAll(strings.TrimSpace(form.Number), " ", "")
	if err := validateStruct(s.validator, form); err != nil {
		return nil, err
	}

	// Проверяем номер по алгоритму Луна
	if !utils.ValidateLuhn(form.Number) {
		return nil, fieldError("number", "номер карты не проходит проверку по алгоритму Луна")
	}
	if utils.IsExpired(form.Month, form.Year, s.now()) {
		return nil, fieldError("month", "срок действия карты истек")
	}

	amount := decimal.Zero
	if strings.TrimSpace(form.Amount) != "" {
		parsed, err := decimal.NewFromString(strings.TrimSpace(form.Amount))
		if err != nil || parsed.IsNegative() {
			return nil, fieldError("amount", "поле amount должно быть неотрицательным числом")
		}
		amount = parsed.Round(2)
	}

	hashedCVV, err := bcrypt.GenerateFromPassword([]byte(form.CVV), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("ошибка при хешировании CVV: %v", err)
	}

	card = &models.CreditCard{
		UserID:     user.ID,
		Name:       strings.TrimSpace(form.Name),
		NumberHMAC: utils.GenerateHMAC(form.Number, s.hmacKey),
		Last4:      form.Number[len(form.Number)-4:],
		Month:      form.Month,
		Year:       form.Year,
		CVV:        string(hashedCVV),
		Amount:     amount,
		CardType:   form.CardType,
		CardStatus: true,
	}

	err = s.db.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(card).Error; err != nil {
			return fmt.Errorf("не удалось создать карту: %v", err)
		}
		notification := &models.Notification{
			UserID:           user.ID,
			NotificationType: models.NotificationAddedCreditCard,
		}
		if err := tx.Create(notification).Error; err != nil {
			return fmt.Errorf("не удалось создать уведомление: %v", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return card, nil
}

// MatchesNumber проверяет, что карта была сохранена с указанным номером
func (s *CardService) MatchesNumber(card *models.CreditCard, number string) bool {
	return utils.ValidateHMAC(number, card.NumberHMAC, s.hmacKey)
}

// GetAllByUserID возвращает все карты пользователя
func (s *CardService) GetAllByUserID(user *models.User) ([]CardResponseDTO, error) {
	cards, err := s.db.CreditCardsByUserID(user.ID)
	if err != nil {
		return nil, fmt.Errorf("не удалось получить карты: %v", err)
	}

	response := make([]CardResponseDTO, 0, len(cards))
	for i := range cards {
		response = append(response, cardToResponseDTO(&cards[i]))
	}
	return response, nil
}

func cardToResponseDTO(card *models.CreditCard) CardResponseDTO {
	return CardResponseDTO{
		ID:         card.ID,
		CardID:     card.CardID,
		Number:     card.MaskedNumber(),
		Holder:     card.Name,
		CVV:        "***",
		Expiration: fmt.Sprintf("%02d/%02d", card.Month, card.Year%100),
		CardType:   card.CardType,
		Amount:     card.Amount.StringFixed(2),
		CreatedAt:  card.CreatedAt.Format("2006-01-02 15:04:05"),
	}
}
