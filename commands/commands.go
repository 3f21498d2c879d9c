package commands

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"paylio/database"
	"paylio/services"
	"paylio/utils"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// ErrPrecondition означает, что не выполнено обязательное условие команды
var ErrPrecondition = errors.New("precondition failed")

// Command административная команда командной строки
type Command struct {
	Name  string
	Usage string
	Run   func(deps Deps, args []string) error
}

// Deps зависимости, передаваемые каждой команде
type Deps struct {
	DB      *database.Database
	Metrics *utils.Metrics
	Out     io.Writer
	Source  services.SeedSource
}

func (d Deps) userService() *services.UserService {
	return services.NewUserService(d.DB)
}

func (d Deps) seedService() *services.SeedService {
	users := services.NewUserService(d.DB)
	// Письма при заполнении демо-данными не отправляются
	accounts := services.NewAccountService(d.DB, nil)
	return services.NewSeedService(d.DB, users, accounts, d.Metrics)
}

func (d Deps) printf(format string, args ...interface{}) {
	fmt.Fprintf(d.Out, format+"\n", args...)
}

var registry = map[string]*Command{}

func register(c *Command) {
	registry[c.Name] = c
}

// Lookup возвращает команду по имени
func Lookup(name string) (*Command, bool) {
	c, ok := registry[name]
	return c, ok
}

// Usage возвращает список команд для справки
func Usage() string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString("Usage: paylio [command] [flags]\n\nCommands:\n")
	b.WriteString("  serve                    run the web server (default)\n")
	for _, name := range names {
		fmt.Fprintf(&b, "  %-24s %s\n", name, registry[name].Usage)
	}
	return b.String()
}

// Run выполняет команду name с аргументами args
func Run(name string, args []string, deps Deps) error {
	c, ok := Lookup(name)
	if !ok {
		return fmt.Errorf("unknown command %q\n\n%s", name, Usage())
	}
	if deps.Out == nil {
		deps.Out = io.Discard
	}
	err := c.Run(deps, args)
	if errors.Is(err, pflag.ErrHelp) {
		return nil
	}
	return err
}

func preconditionf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrPrecondition, fmt.Sprintf(format, args...))
}

// option описывает флаг команды. Значение берется из флага, затем из
// переменной окружения env, затем используется def.
type option struct {
	name  string
	env   string
	def   string
	usage string
}

// parseOptions разбирает флаги через pflag и сводит источники значений в viper
func parseOptions(name string, args []string, out io.Writer, opts []option) (*viper.Viper, error) {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(out)

	v := viper.New()
	for _, o := range opts {
		fs.String(o.name, o.def, o.usage)
		if err := v.BindPFlag(o.name, fs.Lookup(o.name)); err != nil {
			return nil, err
		}
		if o.env != "" {
			if err := v.BindEnv(o.name, o.env); err != nil {
				return nil, err
			}
		}
		v.SetDefault(o.name, o.def)
	}

	if err := fs.Parse(args); err != nil {
		// справку pflag уже напечатал
		if errors.Is(err, pflag.ErrHelp) {
			return nil, err
		}
		return nil, preconditionf("%v", err)
	}
	return v, nil
}

// intOption строго разбирает целочисленную опцию
func intOption(v *viper.Viper, name string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(v.GetString(name)))
	if err != nil {
		return 0, preconditionf("--%s must be an integer, got %q", name, v.GetString(name))
	}
	return n, nil
}
