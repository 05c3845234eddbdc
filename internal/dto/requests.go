package dto

type RegisterRequest struct {
	FullName      string `json:"full_name" validate:"required,max=255"`
	Email         string `json:"email" validate:"required,email"`
	Phone         string `json:"phone" validate:"max=50"`
	TicketCount   int    `json:"ticket_count" validate:"ticketcount"`
	PaymentMethod string `json:"payment_method" validate:"required"`
	PaymentCode   string `json:"payment_code,omitempty" validate:"max=64"`
	BroughtFriend bool   `json:"brought_friend"`
}

type PurchaseMembershipRequest struct {
	FullName      string `json:"full_name" validate:"required,max=255"`
	Email         string `json:"email" validate:"required,email"`
	Phone         string `json:"phone" validate:"max=50"`
	PaymentMethod string `json:"payment_method" validate:"required"`
	PaymentCode   string `json:"payment_code,omitempty" validate:"max=64"`
}

type EventRequest struct {
	Title         string `json:"title" validate:"required,max=255"`
	Description   string `json:"description"`
	Date          string `json:"date" validate:"required,date"`
	StartTime     string `json:"start_time" validate:"starttime"`
	Price         int    `json:"price" validate:"gte=0"`
	MaxSeats      int    `json:"max_seats" validate:"gte=1"`
	FeaturedImage string `json:"featured_image"`
}

type PaymentStatusRequest struct {
	Status string `json:"status" validate:"paymentstatus"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type CreateUserRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	FullName string `json:"full_name" validate:"max=255"`
	Phone    string `json:"phone" validate:"max=50"`
	Role     string `json:"role" validate:"omitempty,role"`
}

type UpdateRoleRequest struct {
	Role string `json:"role" validate:"role"`
}

type PaymentInstructions struct {
	Amount int    `json:"amount"`
	Method string `json:"method"`
	Payee  string `json:"payee,omitempty"`
	Memo   string `json:"memo"`
}
